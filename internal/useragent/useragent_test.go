package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		device  domain.Device
		browser string
		os      string
	}{
		{
			name:    "iphone safari",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			device:  domain.DeviceMobile,
			browser: "Safari",
			os:      "Mac",
		},
		{
			name:    "android chrome",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			device:  domain.DeviceMobile,
			browser: "Chrome",
			os:      "Linux",
		},
		{
			name:    "windows firefox",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
			device:  domain.DeviceDesktop,
			browser: "Firefox",
			os:      "Windows",
		},
		{
			name:    "tablet without mobile token",
			ua:      "Mozilla/5.0 (Android 13; Tablet; rv:121.0) Gecko/121.0 Firefox/121.0",
			device:  domain.DeviceTablet,
			browser: "Firefox",
			os:      "Android",
		},
		{
			name:    "unknown agent",
			ua:      "curl/8.4.0",
			device:  domain.DeviceDesktop,
			browser: domain.UnknownFamily,
			os:      domain.UnknownFamily,
		},
		{
			name:    "empty agent",
			ua:      "",
			device:  domain.DeviceDesktop,
			browser: domain.UnknownFamily,
			os:      domain.UnknownFamily,
		},
		{
			name:    "case is preserved from the header",
			ua:      "custom-client firefox windows",
			device:  domain.DeviceDesktop,
			browser: "firefox",
			os:      "windows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Parse(tt.ua)
			assert.Equal(t, tt.device, info.Device)
			assert.Equal(t, tt.browser, info.Browser)
			assert.Equal(t, tt.os, info.OS)
		})
	}
}
