package normalize

import (
	"github.com/nyaruka/phonenumbers"

	"github.com/Ramsey-B/clover/pkg/countries"
)

// Phone canonicalizes a raw phone number to E.164 using the record's country
// to resolve national formats. ok is false when the country is unknown or the
// number fails to parse or validate.
func Phone(raw, country string) (string, bool) {
	region, ok := countries.Resolve(country)
	if !ok {
		return "", false
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}

	return phonenumbers.Format(num, phonenumbers.E164), true
}
