package currency

// countryCurrency maps ISO country codes to the currency offers are quoted in.
var countryCurrency = map[string]string{
	"DE": "EUR",
	"AT": "EUR",
	"NL": "EUR",
	"FR": "EUR",
	"ES": "EUR",
	"IT": "EUR",
	"TR": "TRY",
	"GB": "GBP",
	"US": "USD",
	"CH": "CHF",
	"SE": "SEK",
}

// Hints are the signals available when choosing a display currency.
type Hints struct {
	UserChoice     string `json:"user_choice,omitempty"`
	ChannelDefault string `json:"channel_default,omitempty"`
	PhoneCountry   string `json:"phone_country,omitempty"`
	IPCountry      string `json:"ip_country,omitempty"`
}

// ForCountry returns the currency for an ISO country code, if known.
func ForCountry(country string) (string, bool) {
	c, ok := countryCurrency[Normalize(country)]
	return c, ok
}

// Decide picks the display currency. The first non-empty signal wins:
// explicit user choice, channel default, phone country, IP country, and
// finally the property base currency. Countries outside the table are
// skipped.
func Decide(h Hints, propertyBase string) string {
	if c := Normalize(h.UserChoice); c != "" {
		return c
	}
	if c := Normalize(h.ChannelDefault); c != "" {
		return c
	}
	for _, country := range []string{h.PhoneCountry, h.IPCountry} {
		if c, ok := ForCountry(country); ok {
			return c
		}
	}
	return Normalize(propertyBase)
}
