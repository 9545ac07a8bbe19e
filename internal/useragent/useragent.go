// Package useragent derives browser, operating system and device class from a
// raw User-Agent header. Classification never fails; anything it cannot
// identify falls back to Unknown and DeviceDesktop.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

const Unknown = "unknown"

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

type Result struct {
	Browser    string
	OS         string
	DeviceType string
}

// osAliases maps parser OS names to display names. Checked in order, by prefix.
var osAliases = []struct {
	prefix string
	name   string
}{
	{prefix: "Windows Phone", name: "Windows Phone"},
	{prefix: "Windows", name: "Windows"},
	{prefix: "Mac OS X", name: "macOS"},
	{prefix: "iPhone OS", name: "iOS"},
	{prefix: "CrOS", name: "Chrome OS"},
	{prefix: "Android", name: "Android"},
	{prefix: "Linux", name: "Linux"},
}

func Classify(userAgent string) Result {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Result{Browser: Unknown, OS: Unknown, DeviceType: DeviceDesktop}
	}

	ua := useragent.New(userAgent)

	return Result{
		Browser:    browserName(ua),
		OS:         osName(ua),
		DeviceType: deviceType(ua, strings.ToLower(userAgent)),
	}
}

func browserName(ua *useragent.UserAgent) string {
	name, _ := ua.Browser()
	if name == "" {
		return Unknown
	}
	return name
}

func osName(ua *useragent.UserAgent) string {
	switch ua.Platform() {
	case "iPad", "iPod", "iPod touch":
		return "iOS"
	}

	name := ua.OSInfo().Name
	if name == "" {
		return Unknown
	}
	for _, alias := range osAliases {
		if strings.HasPrefix(name, alias.prefix) {
			return alias.name
		}
	}
	return name
}

func deviceType(ua *useragent.UserAgent, lower string) string {
	if ua.Bot() {
		return DeviceBot
	}

	switch {
	case ua.Platform() == "iPad",
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return DeviceTablet
	case ua.Mobile(),
		strings.Contains(lower, "mobile"),
		strings.Contains(lower, "iphone"):
		return DeviceMobile
	}
	return DeviceDesktop
}
