package geo

import (
	"regexp"
	"strings"
)

// Continent names a hand-curated grouping of geoIDs used to build map and
// comparison requests.
type Continent string

const (
	Europe  Continent = "Europe"
	America Continent = "America"
	Asia    Continent = "Asia"
	Africa  Continent = "Africa"
	Oceania Continent = "Oceania"
)

// Continents lists the groupings in a stable order.
var Continents = []Continent{Europe, America, Asia, Africa, Oceania}

// The lists cover the main countries of each continent that the agencies
// report. Small territories (Andorra, Kosovo, Bahamas, ...) are left out on
// purpose; request them explicitly.
var groupStrings = map[Continent]string{
	Europe: "AM, AL, AZ, AT, BA, BE, BG, BY, CH, CY, CZ, " +
		"DE, DK, EE, GR, ES, FI, FR, GE, GL, " +
		"HU, HR, IE, IS, IT, LV, LI, LT, " +
		"MD, ME, MK, MT, NL, NO, PL, PT, " +
		"RU, SE, SI, SK, RO, UA, GB, RS",
	America: "AR, BB, BM, BO, BR, BS, CA, CL, CO, " +
		"CR, CU, DO, EC, SV, GT, GY, HN, HT, " +
		"JM, MX, NI, PA, PE, PR, PY, SR, US, UY, VE",
	Asia: "AF, BH, BD, BT, BN, KH, CN, IR, IQ, IL, JP, JO, " +
		"KZ, KW, KG, LA, LB, MY, MV, MN, MM, NP, OM, PK, PS, PH, " +
		"QA, SA, SG, KR, LK, SY, TW, TJ, TH, TL, TR, AE, UZ, VN, YE, IN, ID",
	Africa: "DZ, AO, BJ, BW, BF, BI, CM, CV, CF, TD, KM, CG, CI, CD, " +
		"DJ, EG, GQ, ER, SZ, ET, GA, GM, GH, GN, GW, KE, LS, LR, " +
		"LY, MG, MW, ML, MR, MU, MA, MZ, NE, NG, RW, ST, SN, SC, " +
		"SL, SO, ZA, SS, SD, TG, TN, UG, TZ, EH, ZM, ZW",
	Oceania: "AU, FJ, PF, GU, NC, NZ, MP, PG",
}

var listSepRe = regexp.MustCompile(`\s*,\s*`)

// GroupString returns the continent's geoIDs as a comma separated string.
// Unknown continents yield "".
func GroupString(c Continent) string {
	return groupStrings[c]
}

// Group returns the continent's geoIDs in curated order.
func Group(c Continent) []string {
	return ParseGeoIDList(groupStrings[c])
}

// ParseGeoIDList splits a comma separated code list, trimming blanks and
// upper-casing each code. Empty entries are skipped.
func ParseGeoIDList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := listSepRe.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
