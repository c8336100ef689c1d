package config

import (
	"slices"
)

// Region identifies a deployment region of the API.
type Region string

// Supported regions. RegionGlobal addresses services that are not regionalized.
const (
	RegionEUWest1    Region = "eu-west-1"
	RegionEUWest2    Region = "eu-west-2"
	RegionEUWest3    Region = "eu-west-3"
	RegionEUCentral1 Region = "eu-central-1"
	RegionUSEast1    Region = "us-east-1"
	RegionUSEast2    Region = "us-east-2"
	RegionUSWest1    Region = "us-west-1"
	RegionUSWest2    Region = "us-west-2"
	RegionCACentral1 Region = "ca-central-1"
	RegionGlobal     Region = "global"
)

// regionalOrder is also the alphabet used by resource identifiers:
// 'a' is the first region, 'b' the second and so on.
var regionalOrder = []Region{
	RegionEUWest1,
	RegionEUWest2,
	RegionEUWest3,
	RegionEUCentral1,
	RegionUSEast1,
	RegionUSEast2,
	RegionUSWest1,
	RegionUSWest2,
	RegionCACentral1,
}

// Regions returns the regional (non-global) regions in their canonical order.
func Regions() []Region {
	return slices.Clone(regionalOrder)
}

// IsValid reports whether r is a known region or the global pseudo-region.
func (r Region) IsValid() bool {
	return r == RegionGlobal || slices.Contains(regionalOrder, r)
}

func (r Region) String() string {
	return string(r)
}

// RegionFromID extracts the region encoded in a resource identifier.
// The second-to-last character of the id selects the region.
func RegionFromID(id string) (Region, error) {
	if len(id) < 2 {
		return "", NewInvalidFieldError("id", "too short to carry a region", nil)
	}
	idx := int(id[len(id)-2]) - 'a'
	if idx < 0 || idx >= len(regionalOrder) {
		return "", NewInvalidFieldError("id", "does not encode a known region", nil)
	}
	return regionalOrder[idx], nil
}

func regionNames(regions []Region) []string {
	names := make([]string, 0, len(regions))
	for _, r := range regions {
		names = append(names, string(r))
	}
	return names
}
