package domain

import "strings"

// Asset identifies the on-chain token type a payment transfers. Ether is
// modeled explicitly (rather than omitted) so the verifier can report
// UnsupportedToken precisely instead of falling through a default case.
type Asset int

const (
	AssetEther Asset = iota
	AssetUSDC
)

var assetTags = map[Asset]string{
	AssetEther: "ether",
	AssetUSDC:  "usdc",
}

func (a Asset) String() string {
	if tag, ok := assetTags[a]; ok {
		return tag
	}
	return "unknown"
}

// ParseAsset parses the lowercase wire representation of an asset tag.
func ParseAsset(s string) (Asset, bool) {
	switch strings.ToLower(s) {
	case "ether":
		return AssetEther, true
	case "usdc":
		return AssetUSDC, true
	default:
		return 0, false
	}
}
