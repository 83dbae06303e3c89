package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestClassifyDevice(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		want      Device
	}{
		{
			name:      "iphone",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
			want:      DeviceIOS,
		},
		{
			name:      "ipad",
			userAgent: "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)",
			want:      DeviceIOS,
		},
		{
			name:      "android phone",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36",
			want:      DeviceAndroid,
		},
		{
			name:      "android case insensitive",
			userAgent: "Mozilla/5.0 (Linux; ANDROID 12)",
			want:      DeviceAndroid,
		},
		{
			name:      "mac desktop",
			userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/537.36",
			want:      DeviceMac,
		},
		{
			name:      "windows desktop",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			want:      DeviceWindows,
		},
		{
			name:      "linux desktop",
			userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
			want:      DeviceOther,
		},
		{
			name:      "empty user agent",
			userAgent: "",
			want:      DeviceOther,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyDevice(tc.userAgent))
		})
	}
}

func TestClassifyTier(t *testing.T) {
	cases := []struct {
		country string
		want    Tier
	}{
		{"US", Tier1},
		{"UK", Tier1},
		{"DE", Tier1},
		{"NO", Tier1},
		{"FR", Tier2},
		{"JP", Tier2},
		{"HK", Tier2},
		{"BR", Tier3},
		{"IN", Tier3},
		{"", Tier3},
	}

	for _, tc := range cases {
		t.Run(tc.country, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyTier(tc.country))
		})
	}
}
