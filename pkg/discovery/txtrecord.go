package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

const endpointSuffix = "_endpoint"

// endpointKeys maps protocomm paths to the TXT key prefix the
// provisioning manager uses.
var endpointKeys = map[string]string{
	"proto-ver":        "version",
	"prov-session":     "session",
	"prov-config":      "config",
	"prov-scan":        "scan",
	"cloud_user_assoc": "assoc",
}

// EncodeEndpointTXT creates TXT records advertising the given paths.
func EncodeEndpointTXT(paths []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(paths))
	for _, p := range paths {
		key, ok := endpointKeys[p]
		if !ok {
			key = p
		}
		txt[key+endpointSuffix] = "/" + p
	}
	return txt
}

// DecodeEndpointTXT returns the advertised endpoints keyed by protocomm
// path. Keys without the _endpoint suffix are ignored.
func DecodeEndpointTXT(txt TXTRecordMap) map[string]string {
	byKey := make(map[string]string, len(endpointKeys))
	for path, key := range endpointKeys {
		byKey[key] = path
	}

	endpoints := make(map[string]string)
	for k, v := range txt {
		name, ok := strings.CutSuffix(k, endpointSuffix)
		if !ok || v == "" {
			continue
		}
		path, known := byKey[name]
		if !known {
			path = strings.TrimPrefix(v, "/")
		}
		endpoints[path] = v
	}
	return endpoints
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value"
// strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidInstanceName)
	}
	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidInstanceName, MaxInstanceNameLen)
	}
	return nil
}
