// Package geo enriches events with MaxMind GeoIP city and ASN data.
package geo

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNoDatabase is returned by Open when no database path is given.
var ErrNoDatabase = errors.New("no GeoIP database configured")

// cityReader is the subset of *geoip2.Reader used for city lookups.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// asnReader is the subset of *geoip2.Reader used for ASN lookups.
type asnReader interface {
	ASN(ip net.IP) (*geoip2.ASN, error)
	Close() error
}

// Enricher resolves remote addresses to location and network metadata.
type Enricher struct {
	city cityReader
	asn  asnReader
}

// Open loads the city and ASN databases. Either path may be empty, but
// not both.
func Open(cityPath, asnPath string) (*Enricher, error) {
	if cityPath == "" && asnPath == "" {
		return nil, ErrNoDatabase
	}

	e := &Enricher{}
	if cityPath != "" {
		r, err := geoip2.Open(cityPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open GeoIP city database: %w", err)
		}
		e.city = r
	}
	if asnPath != "" {
		r, err := geoip2.Open(asnPath)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("failed to open GeoIP ASN database: %w", err)
		}
		e.asn = r
	}
	return e, nil
}

// Lookup returns metadata for ip. Unparseable, private and loopback
// addresses yield an empty map. Lookup errors are skipped per database.
func (e *Enricher) Lookup(ip string) map[string]any {
	out := make(map[string]any)
	addr := net.ParseIP(ip)
	if addr == nil || addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() {
		return out
	}

	if e.city != nil {
		if rec, err := e.city.City(addr); err == nil {
			if rec.Country.IsoCode != "" {
				out["country"] = rec.Country.IsoCode
			}
			if name := rec.City.Names["en"]; name != "" {
				out["city"] = name
			}
			if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
				out["latitude"] = rec.Location.Latitude
				out["longitude"] = rec.Location.Longitude
			}
		}
	}
	if e.asn != nil {
		if rec, err := e.asn.ASN(addr); err == nil && rec.AutonomousSystemNumber != 0 {
			out["asn"] = rec.AutonomousSystemNumber
			out["as_org"] = rec.AutonomousSystemOrganization
		}
	}
	return out
}

// Close releases both databases.
func (e *Enricher) Close() error {
	var errs []error
	if e.city != nil {
		errs = append(errs, e.city.Close())
	}
	if e.asn != nil {
		errs = append(errs, e.asn.Close())
	}
	return errors.Join(errs...)
}
