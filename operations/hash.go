package operations

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// IsSerializable reports whether v survives a JSON round trip, which is required to persist it in
// a report. Functions, channels and values failing to marshal are not serializable.
func IsSerializable(lggr logger.Logger, v any) bool {
	if v == nil {
		return true
	}

	switch reflect.TypeOf(v).Kind() { //nolint:exhaustive // only the kinds json cannot encode matter
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		lggr.Errorw("Value cannot be serialized", "type", reflect.TypeOf(v).String())
		return false
	}

	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value cannot be serialized", "type", reflect.TypeOf(v).String(), "err", err)
		return false
	}

	return true
}

// constructUniqueHashFrom hashes the operation identity together with its input. Inputs are
// normalized through JSON so an input loaded from a persisted report hashes like the original.
func constructUniqueHashFrom(cache *sync.Map, def Definition, input any) (string, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	var normalized any
	if err = json.Unmarshal(b, &normalized); err != nil {
		return "", err
	}

	version := ""
	if def.Version != nil {
		version = def.Version.String()
	}
	key, err := json.Marshal(struct {
		ID      string `json:"id"`
		Version string `json:"version"`
		Input   any    `json:"input"`
	}{def.ID, version, normalized})
	if err != nil {
		return "", err
	}

	if cached, ok := cache.Load(string(key)); ok {
		return cached.(string), nil
	}

	sum := sha256.Sum256(key)
	hash := hex.EncodeToString(sum[:])
	cache.Store(string(key), hash)

	return hash, nil
}
