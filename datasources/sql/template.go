package sql

import (
	"strings"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/cube2222/connplan/predicate"
)

// Location is everything a dialect needs to build its connection string.
type Location struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Params are passed through to the driver.
	Params map[string]string
}

type SQLSourceTemplate interface {
	// GetDSNAndDriverName returns the data source name and the database/sql driver name.
	GetDSNAndDriverName(location Location) (string, string, error)
	// GetURL returns the connection url, without the password.
	GetURL(location Location) string
	// GetBindType returns the sqlx placeholder style of the dialect.
	GetBindType() int
	GetAvailableFilters() predicate.Operators
}

type registeredTemplate struct {
	name     string
	template SQLSourceTemplate
}

func (t *registeredTemplate) Less(than btree.Item) bool {
	other, ok := than.(*registeredTemplate)
	if !ok {
		return true
	}

	return t.name < other.name
}

var (
	templatesMu sync.RWMutex
	templates   = btree.New(2)
)

// RegisterTemplate makes a dialect available under the given names.
// Dialect packages call it from init, so they have to be imported for their names to resolve.
func RegisterTemplate(template SQLSourceTemplate, names ...string) {
	templatesMu.Lock()
	defer templatesMu.Unlock()
	for _, name := range names {
		item := &registeredTemplate{name: strings.ToLower(name), template: template}
		if templates.Has(item) {
			panic("sql dialect registered twice: " + item.name)
		}
		templates.ReplaceOrInsert(item)
	}
}

// Dialects lists the registered dialect names.
func Dialects() []string {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	return availableLocked()
}

// DialectName resolves a driver identity to a dialect name.
// Either a dialect name or a JDBC driver class name is accepted,
// the latter being resolved by its provider segment (org.postgresql.Driver is postgresql).
func DialectName(driverIdentity string) string {
	driverIdentity = strings.ToLower(strings.TrimSpace(driverIdentity))
	parts := strings.Split(driverIdentity, ".")
	if len(parts) < 2 {
		return driverIdentity
	}
	return parts[1]
}

// GetTemplate returns the dialect for the given driver identity.
func GetTemplate(driverIdentity string) (SQLSourceTemplate, error) {
	name := DialectName(driverIdentity)

	templatesMu.RLock()
	defer templatesMu.RUnlock()
	item := templates.Get(&registeredTemplate{name: name})
	if item == nil {
		return nil, errors.Errorf("unknown sql dialect %s, available: %s", name, strings.Join(availableLocked(), ", "))
	}
	return item.(*registeredTemplate).template, nil
}

func availableLocked() []string {
	out := make([]string, 0, templates.Len())
	templates.Ascend(func(item btree.Item) bool {
		out = append(out, item.(*registeredTemplate).name)
		return true
	})
	return out
}
