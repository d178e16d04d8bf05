package validators

import (
	"fmt"
	"net"
	"net/netip"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

// Validator checks data against an optional constraint. It returns nil when
// data is valid and an error matching neterrors.ErrInvalid otherwise.
type Validator func(data interface{}, constraint interface{}) error

func invalid(format string, args ...interface{}) error {
	return neterrors.Invalid(fmt.Sprintf(format, args...))
}

// ValidateNotEmptyString requires a string that is not blank. constraint is
// an optional maximum length.
func ValidateNotEmptyString(data interface{}, maxLen interface{}) error {
	if err := ValidateString(data, maxLen); err != nil {
		return err
	}
	if strings.TrimSpace(data.(string)) == "" {
		return invalid("'%s' Blank strings are not permitted", data)
	}
	return nil
}

// ValidateString requires a string no longer than the optional int maxLen.
func ValidateString(data interface{}, maxLen interface{}) error {
	s, ok := data.(string)
	if !ok {
		return invalid("'%v' is not a valid string", data)
	}
	if limit, ok := maxLen.(int); ok && limit > 0 && len(s) > limit {
		return invalid("'%s' exceeds maximum length of %d", s, limit)
	}
	return nil
}

// ValidateStringOrNone accepts nil or a valid string.
func ValidateStringOrNone(data interface{}, maxLen interface{}) error {
	if data == nil {
		return nil
	}
	return ValidateString(data, maxLen)
}

// ValidateBoolean accepts anything ConvertToBoolean understands.
func ValidateBoolean(data interface{}, _ interface{}) error {
	_, err := ConvertToBoolean(data)
	return err
}

// ValidateRange requires an integer within the inclusive [min, max] given as a
// two element []int. A negative bound is unbounded.
func ValidateRange(data interface{}, bounds interface{}) error {
	value, err := ConvertToInt(data)
	if err != nil {
		return invalid("'%v' is not an integer", data)
	}
	limits, ok := bounds.([]int)
	if !ok || len(limits) != 2 {
		return invalid("'%v' is not a valid range", bounds)
	}
	low, high := limits[0], limits[1]
	if low >= 0 && value < low {
		return invalid("'%d' is too small - must be at least '%d'", value, low)
	}
	if high >= 0 && value > high {
		return invalid("'%d' is too large - must be no larger than '%d'", value, high)
	}
	return nil
}

// ValidateValues requires data to equal one of the elements of the slice valid.
func ValidateValues(data interface{}, valid interface{}) error {
	values := reflect.ValueOf(valid)
	if values.Kind() != reflect.Slice && values.Kind() != reflect.Array {
		return invalid("'%v' is not a list of valid values", valid)
	}
	for i := 0; i < values.Len(); i++ {
		if reflect.DeepEqual(values.Index(i).Interface(), data) {
			return nil
		}
	}
	return invalid("'%v' is not in %v", data, valid)
}

// ValidateNoWhitespace rejects strings containing any whitespace.
func ValidateNoWhitespace(data interface{}, _ interface{}) error {
	s, ok := data.(string)
	if !ok || strings.ContainsFunc(s, unicode.IsSpace) {
		return invalid("'%v' contains whitespace", data)
	}
	return nil
}

// ValidateMACAddress accepts 48-bit MAC addresses other than the all-zero and
// broadcast addresses.
func ValidateMACAddress(data interface{}, _ interface{}) error {
	s, ok := data.(string)
	if !ok || Engine().Var(s, "required,mac") != nil {
		return invalid("'%v' is not a valid MAC address", data)
	}
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return invalid("'%v' is not a valid MAC address", data)
	}
	switch hw.String() {
	case "00:00:00:00:00:00", "ff:ff:ff:ff:ff:ff":
		return invalid("'%v' is not a valid MAC address", data)
	}
	return nil
}

// ValidateIPAddress accepts IPv4 and IPv6 addresses without zones.
func ValidateIPAddress(data interface{}, _ interface{}) error {
	s, ok := data.(string)
	if !ok || Engine().Var(s, "required,ip") != nil {
		return invalid("'%v' is not a valid IP address", data)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return invalid("'%v' is not a valid IP address", data)
	}
	return nil
}

// ValidateIPAddressOrNone accepts nil or a valid IP address.
func ValidateIPAddressOrNone(data interface{}, constraint interface{}) error {
	if data == nil {
		return nil
	}
	return ValidateIPAddress(data, constraint)
}

// ValidateSubnet requires a CIDR with no host bits set, e.g. 10.0.0.0/24.
func ValidateSubnet(data interface{}, _ interface{}) error {
	if err := ValidateNoWhitespace(data, nil); err != nil {
		return invalid("'%v' is not a valid IP subnet", data)
	}
	s := data.(string)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return invalid("'%s' is not a valid IP subnet", s)
		}
		return invalid("'%s' isn't a recognized IP subnet cidr, '%s' is recommended", s, netip.PrefixFrom(addr, addr.BitLen()))
	}
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return invalid("'%s' is not a valid IP subnet", s)
	}
	if masked := prefix.Masked(); masked != prefix {
		return invalid("'%s' isn't a recognized IP subnet cidr, '%s' is recommended", s, masked)
	}
	return nil
}

// ValidateUUID requires a UUID in canonical 8-4-4-4-12 form.
func ValidateUUID(data interface{}, _ interface{}) error {
	s, ok := data.(string)
	if !ok {
		return invalid("'%v' is not a valid UUID", data)
	}
	parsed, err := uuid.Parse(s)
	if err != nil || parsed.String() != strings.ToLower(s) {
		return invalid("'%s' is not a valid UUID", s)
	}
	return nil
}

// ValidateUUIDList requires a list of distinct UUIDs.
func ValidateUUIDList(data interface{}, _ interface{}) error {
	items, ok := data.([]string)
	if !ok {
		return invalid("'%v' is not a list", data)
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := ValidateUUID(item, nil); err != nil {
			return err
		}
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			return invalid("Duplicate items in the list: '%s'", item)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateHostname accepts RFC 1123 host names up to 255 characters.
func ValidateHostname(data interface{}, _ interface{}) error {
	s, ok := data.(string)
	if !ok || len(s) > 255 || Engine().Var(s, "required,hostname_rfc1123") != nil {
		return invalid("'%v' is not a valid hostname", data)
	}
	return nil
}

// ValidateRegex requires data to match the regular expression pattern.
func ValidateRegex(data interface{}, pattern interface{}) error {
	s, ok := data.(string)
	if !ok {
		return invalid("'%v' is not a valid input", data)
	}
	expr, ok := pattern.(string)
	if !ok {
		return invalid("'%v' is not a valid pattern", pattern)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return invalid("'%s' is not a valid pattern: %v", expr, err)
	}
	if !re.MatchString(s) {
		return invalid("'%s' is not a valid input", s)
	}
	return nil
}

// ValidatePortRange accepts a single port or "min:max" with 1 <= min <= max <= 65535.
func ValidatePortRange(data interface{}, _ interface{}) error {
	s, ok := data.(string)
	if !ok {
		return invalid("'%v' is not a valid port range", data)
	}
	if _, _, err := parsePortRange(s); err != nil {
		return invalid("'%s' is not a valid port range: %v", s, err)
	}
	return nil
}
