// Package fingerprint computes the content-addressed cache key for a
// match: a deterministic digest of the opportunity, the company profile
// and the weight vector in play, so that identical inputs always hit
// the same cache entry and any change to any of the three invalidates
// it (spec.md §4.1).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/govbizai/matchcore/pkg/types"
)

// ShortHashLen is the number of hex characters short_hash keeps from
// the full digest.
const ShortHashLen = 8

// FingerprintLen is the fixed length of a Compute result (spec.md
// §6.4: "Fingerprint is a 32-character lowercase hex string").
const FingerprintLen = 32

// Compute returns the 32-char lowercase hex fingerprint for a match
// between opp and company under weights, per spec.md §4.1:
//
//	fp = H(opp_id || company_id || short_hash(opp) || short_hash(company) || short_hash(weights))
func Compute(opp *types.Opportunity, company *types.CompanyProfile, weights types.Weights) (string, error) {
	oppHash, err := ShortHash(opp)
	if err != nil {
		return "", err
	}
	companyHash, err := ShortHash(company)
	if err != nil {
		return "", err
	}
	weightsHash, err := ShortHash(weights)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(opp.NoticeID))
	h.Write([]byte(company.CompanyID))
	h.Write([]byte(oppHash))
	h.Write([]byte(companyHash))
	h.Write([]byte(weightsHash))
	return hex.EncodeToString(h.Sum(nil))[:FingerprintLen], nil
}

// ShortHash returns the first ShortHashLen hex characters of the SHA256
// digest of v's canonical (sorted-key) JSON encoding.
func ShortHash(v interface{}) (string, error) {
	canon, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	full := hex.EncodeToString(sum[:])
	return full[:ShortHashLen], nil
}

// canonicalJSON marshals v to JSON with object keys sorted at every
// level, so that two structurally equal values always serialize to the
// same bytes regardless of struct field order or map iteration order.
// encoding/json already sorts map[string]T keys; the extra pass below
// is for the generic map[string]interface{} shape that round-tripping
// through json.Marshal/Unmarshal produces for arbitrary values (nested
// maps decoded from JSON are not re-sorted by a second Marshal unless
// we normalize them ourselves).
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	return marshalSorted(generic)
}

func marshalSorted(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := marshalSorted(val[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	case []interface{}:
		buf := []byte{'['}
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			ib, err := marshalSorted(item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, ib...)
		}
		buf = append(buf, ']')
		return buf, nil
	default:
		return json.Marshal(val)
	}
}
