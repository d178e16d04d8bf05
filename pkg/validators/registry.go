package validators

import (
	"fmt"
	"sort"
	"sync"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

// Prefix of the registered validator names.
const TypePrefix = "type:"

var (
	registryMu sync.RWMutex
	registry   = map[string]Validator{
		TypePrefix + "not_empty_string":   ValidateNotEmptyString,
		TypePrefix + "string":             ValidateString,
		TypePrefix + "string_or_none":     ValidateStringOrNone,
		TypePrefix + "boolean":            ValidateBoolean,
		TypePrefix + "range":              ValidateRange,
		TypePrefix + "values":             ValidateValues,
		TypePrefix + "no_whitespace":      ValidateNoWhitespace,
		TypePrefix + "mac_address":        ValidateMACAddress,
		TypePrefix + "ip_address":         ValidateIPAddress,
		TypePrefix + "ip_address_or_none": ValidateIPAddressOrNone,
		TypePrefix + "subnet":             ValidateSubnet,
		TypePrefix + "uuid":               ValidateUUID,
		TypePrefix + "uuid_list":          ValidateUUIDList,
		TypePrefix + "hostname":           ValidateHostname,
		TypePrefix + "regex":              ValidateRegex,
		TypePrefix + "port_range":         ValidatePortRange,
	}
)

// Get returns the validator registered under name, e.g. "type:mac_address".
func Get(name string) (Validator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Add registers fn under name. Names are unique.
func Add(name string, fn Validator) error {
	if name == "" {
		return invalid("validator name is required")
	}
	if fn == nil {
		return invalid("validator %s is nil", name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return neterrors.Conflict(fmt.Sprintf("validator %s is already registered", name))
	}
	registry[name] = fn
	return nil
}

// Names returns the registered validator names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate runs the validator registered under name.
func Validate(name string, data, constraint interface{}) error {
	fn, ok := Get(name)
	if !ok {
		return invalid("validator %s is not registered", name)
	}
	return fn(data, constraint)
}
