package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reWS          = regexp.MustCompile(`[,\t]+`)
	reMultiSpace  = regexp.MustCompile(`\s{2,}`)
	reKilometers  = regexp.MustCompile(`\bkm\b|\bkilometer`)
	reTripPrefix  = regexp.MustCompile(`(?:trip|tm)\s*[:\-]?\s*(\d+(?:\.\d+)?)\b`)
	reTripSuffix  = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:tm|trip)\b`)
	reTripMenu    = regexp.MustCompile(`computer|trip\s*[ab]\b|info`)
	reMileage     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mi|mile|km|kilometer)s?`)
	reAnyNumber   = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// applyOdometerReadings overrides model output for odometer documents with
// regex-derived readings. Dashboard photos OCR into jumbles the model
// misreads; the deterministic rules here are more reliable:
//   - a "trip"/"TM" marker near a number is the trip reading, unless the
//     surrounding text is a menu label ("Trip Computer", "Trip A/B")
//   - the LAST number attached to a mileage unit is the odometer reading
//   - unit defaults to miles unless a km marker appears
func applyOdometerReadings(fields map[string]any, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	clean := strings.ToLower(text)
	clean = reWS.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(reMultiSpace.ReplaceAllString(clean, " "))

	unit := "miles"
	if reKilometers.MatchString(clean) {
		unit = "km"
	}

	var tripVal string
	if loc := reTripPrefix.FindStringSubmatchIndex(clean); loc != nil {
		snippet := contextSnippet(clean, loc[0], loc[1])
		if !reTripMenu.MatchString(snippet) {
			tripVal = clean[loc[2]:loc[3]]
		}
	} else if loc := reTripSuffix.FindStringSubmatchIndex(clean); loc != nil {
		snippet := contextSnippet(clean, loc[0], loc[1])
		if !reTripMenu.MatchString(snippet) {
			tripVal = clean[loc[2]:loc[3]]
		}
	}

	var odoVal string
	if matches := reMileage.FindAllStringSubmatch(clean, -1); len(matches) > 0 {
		odoVal = matches[len(matches)-1][1]
	} else if nums := reAnyNumber.FindAllString(clean, -1); len(nums) > 0 {
		// no explicit unit: pick the largest numeric on the display
		odoVal = nums[0]
		max, _ := strconv.ParseFloat(nums[0], 64)
		for _, n := range nums[1:] {
			if f, err := strconv.ParseFloat(n, 64); err == nil && f > max {
				max, odoVal = f, n
			}
		}
	}

	if odoVal != "" {
		fields["OdometerReading"] = trimFraction(odoVal)
		fields["Unit"] = unit
	}
	if tripVal != "" {
		fields["TripReading"] = trimFraction(tripVal)
	}
}

func contextSnippet(s string, start, end int) string {
	lo := start - 10
	if lo < 0 {
		lo = 0
	}
	hi := end + 10
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}

// trimFraction drops trailing fractional zeros ("2471.60" → "2471.6",
// "68263.0" → "68263") without touching integer digits.
func trimFraction(v string) string {
	if !strings.Contains(v, ".") {
		return v
	}
	v = strings.TrimRight(v, "0")
	return strings.TrimRight(v, ".")
}
