// Package useragent derives coarse device, browser and OS families from a
// User-Agent header.
package useragent

import (
	"regexp"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

var (
	mobilePattern  = regexp.MustCompile(`(?i)mobile`)
	tabletPattern  = regexp.MustCompile(`(?i)tablet`)
	browserPattern = regexp.MustCompile(`(?i)(Chrome|Firefox|Safari|Edge|Opera)`)
	osPattern      = regexp.MustCompile(`(?i)(Windows|Mac|Linux|Android|iOS)`)
)

// Info is the classification of one user agent.
type Info struct {
	Device  domain.Device
	Browser string
	OS      string
}

// Parse classifies ua. The first matching token wins, in the order it
// appears in the string, and is returned as written in ua. An agent with
// no recognizable tokens is desktop/Unknown/Unknown.
func Parse(ua string) Info {
	info := Info{
		Device:  domain.DeviceDesktop,
		Browser: domain.UnknownFamily,
		OS:      domain.UnknownFamily,
	}

	// mobile is checked first: Android tablets often send both tokens.
	switch {
	case mobilePattern.MatchString(ua):
		info.Device = domain.DeviceMobile
	case tabletPattern.MatchString(ua):
		info.Device = domain.DeviceTablet
	}

	if m := browserPattern.FindString(ua); m != "" {
		info.Browser = m
	}
	if m := osPattern.FindString(ua); m != "" {
		info.OS = m
	}

	return info
}
