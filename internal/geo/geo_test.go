package geo

import (
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	records map[string]*geoip2.City
	calls   int
}

func (f *fakeReader) City(ip net.IP) (*geoip2.City, error) {
	f.calls++
	record, ok := f.records[ip.String()]
	if !ok {
		return nil, errors.New("not found")
	}
	return record, nil
}

func (f *fakeReader) Close() error { return nil }

func TestLocate(t *testing.T) {
	paris := &geoip2.City{}
	paris.Country.IsoCode = "FR"
	paris.City.Names = map[string]string{"en": "Paris", "fr": "Paris"}

	reader := &fakeReader{records: map[string]*geoip2.City{"198.51.100.7": paris}}
	g := &GeoIP{reader: reader}

	assert.Equal(t, Location{Country: "FR", City: "Paris"}, g.Locate("198.51.100.7"))
	assert.Equal(t, Location{}, g.Locate("192.0.2.1"))

	calls := reader.calls
	assert.Equal(t, Location{}, g.Locate("unknown"))
	assert.Equal(t, Location{}, g.Locate(""))
	assert.Equal(t, calls, reader.calls, "unparsable addresses must not reach the reader")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.mmdb")
}
