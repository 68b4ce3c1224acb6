package geo

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	EPSGWGS84          = 4326
	EPSGWebMercator    = 3857
	epsgGoogleMercator = 900913

	epsgUTMNorthBase = 32600
	epsgUTMSouthBase = 32700
)

// CRS is a coordinate reference system descriptor identified by its EPSG code.
type CRS struct {
	EPSG int
}

var (
	WGS84       = CRS{EPSG: EPSGWGS84}
	WebMercator = CRS{EPSG: EPSGWebMercator}
)

func (c CRS) String() string {
	return fmt.Sprintf("EPSG:%d", c.EPSG)
}

func (c CRS) IsZero() bool {
	return c.EPSG == 0
}

// IsProjected is false only for the geographic WGS84 system.
func (c CRS) IsProjected() bool {
	return c.EPSG != EPSGWGS84
}

func (c CRS) IsGeographic() bool {
	return c.EPSG == EPSGWGS84
}

// UTMZone returns the zone number and hemisphere of a UTM crs.
func (c CRS) UTMZone() (zone int, north bool, ok bool) {
	switch {
	case c.EPSG > epsgUTMNorthBase && c.EPSG <= epsgUTMNorthBase+60:
		return c.EPSG - epsgUTMNorthBase, true, true
	case c.EPSG > epsgUTMSouthBase && c.EPSG <= epsgUTMSouthBase+60:
		return c.EPSG - epsgUTMSouthBase, false, true
	}
	return 0, false, false
}

func (c CRS) IsWebMercator() bool {
	return c.EPSG == EPSGWebMercator
}

// UTM returns the crs of a UTM zone.
func UTM(zone int, north bool) CRS {
	if north {
		return CRS{EPSG: epsgUTMNorthBase + zone}
	}
	return CRS{EPSG: epsgUTMSouthBase + zone}
}

// UTMZoneForLon returns the 6 degree UTM zone containing lon.
func UTMZoneForLon(lon float64) int {
	zone := int((lon+180)/6) + 1
	if zone > 60 {
		zone = 60
	}
	if zone < 1 {
		zone = 1
	}
	return zone
}

// ParseCRS parses "EPSG:xxxx", "epsg:xxxx" or a bare code. It does not check support.
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	code := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "epsg") {
			return CRS{}, fmt.Errorf("unknown crs authority %q", s[:i])
		}
		code = s[i+1:]
	}
	epsg, err := strconv.Atoi(code)
	if err != nil || epsg <= 0 {
		return CRS{}, fmt.Errorf("invalid epsg code %q", s)
	}
	if epsg == epsgGoogleMercator {
		epsg = EPSGWebMercator
	}
	return CRS{EPSG: epsg}, nil
}
