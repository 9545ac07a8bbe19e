// Package geo resolves a client IP to an approximate country and city from a
// local GeoLite2 City database.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"
)

// Location is the result of a lookup. Empty fields mean unknown.
type Location struct {
	Country string
	City    string
}

type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

type GeoIP struct {
	reader cityReader
}

// Open loads a GeoLite2/GeoIP2 City database from path.
func Open(path string) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %q: %w", path, err)
	}
	log.Info().Str("path", path).Msg("geoip database loaded")
	return &GeoIP{reader: reader}, nil
}

// Locate returns the ISO country code and English city name for ip. It never
// fails: unparsable or unknown addresses yield an empty Location.
func (g *GeoIP) Locate(ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}
	}

	record, err := g.reader.City(parsed)
	if err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("geoip lookup failed")
		return Location{}
	}

	return Location{
		Country: record.Country.IsoCode,
		City:    record.City.Names["en"],
	}
}

func (g *GeoIP) Close() error {
	return g.reader.Close()
}
