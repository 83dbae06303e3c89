package geo

import "regexp"

// Device is a visitor's resolved platform family.
type Device string

const (
	DeviceWindows Device = "Windows"
	DeviceMac     Device = "Mac"
	DeviceAndroid Device = "Android"
	DeviceIOS     Device = "iOS"
	DeviceOther   Device = "Other"
)

// Tier is a geographic CPM bracket.
type Tier string

const (
	Tier1 Tier = "tier1"
	Tier2 Tier = "tier2"
	Tier3 Tier = "tier3"
)

// Ordered device rules; first match wins. Android is checked before iOS so a
// UA naming both (some Android browsers spoof "like iPhone") stays Android.
var deviceRules = []struct {
	pattern *regexp.Regexp
	device  Device
}{
	{regexp.MustCompile(`(?i)android`), DeviceAndroid},
	{regexp.MustCompile(`iPad|iPhone|iPod`), DeviceIOS},
	{regexp.MustCompile(`Macintosh|MacIntel|MacPPC|Mac68K`), DeviceMac},
	{regexp.MustCompile(`Win32|Win64|Windows|WinCE`), DeviceWindows},
}

var (
	tier1Countries = map[string]struct{}{
		"US": {}, "UK": {}, "CA": {}, "AU": {}, "DE": {}, "NL": {}, "SE": {}, "NO": {},
	}
	tier2Countries = map[string]struct{}{
		"FR": {}, "IT": {}, "ES": {}, "JP": {}, "KR": {}, "SG": {}, "HK": {},
	}
)

// ClassifyDevice maps a user-agent signature to a device family.
func ClassifyDevice(userAgent string) Device {
	for _, rule := range deviceRules {
		if rule.pattern.MatchString(userAgent) {
			return rule.device
		}
	}
	return DeviceOther
}

// ClassifyTier maps an ISO country code to its CPM tier. Countries outside
// the tier-1 and tier-2 sets are tier-3.
func ClassifyTier(countryCode string) Tier {
	if _, ok := tier1Countries[countryCode]; ok {
		return Tier1
	}
	if _, ok := tier2Countries[countryCode]; ok {
		return Tier2
	}
	return Tier3
}
