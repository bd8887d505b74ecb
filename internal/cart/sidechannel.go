package cart

import "encoding/json"

// MetadataBudget is how many bytes of serialized side-channel payload fit in
// the checkout session metadata slot, leaving headroom under Stripe's ~5KB
// metadata limit for the other keys.
const MetadataBudget = 4500

// EncodeRecords serializes side-channel records for the session metadata.
// When the encoding exceeds the budget, trailing whole records are dropped so
// the stored value stays valid JSON; the webhook side treats missing trailing
// records as a tolerated degradation.
func EncodeRecords(records []Record, budget int) string {
	for len(records) > 0 {
		data, err := json.Marshal(records)
		if err != nil {
			return ""
		}
		if len(data) <= budget {
			return string(data)
		}
		records = records[:len(records)-1]
	}
	return ""
}

// DecodeRecords parses a metadata side-channel payload. Malformed or empty
// input yields nil: enrichment is best-effort, never fatal.
func DecodeRecords(s string) []Record {
	if s == "" {
		return nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(s), &records); err != nil {
		return nil
	}
	return records
}
