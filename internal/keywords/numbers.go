package keywords

import (
	"sort"
	"strings"
)

var (
	numberPhrases = func() []string {
		p := []string{
			"אחד עשרה", "אחד עשר", "שתיים עשרה", "שתיים עשר", "שלוש עשרה", "שלוש עשר",
			"ארבע עשרה", "ארבע עשר", "חמש עשרה", "חמש עשר", "שש עשרה", "שש עשר",
			"שבע עשרה", "שבע עשר", "שמונה עשרה", "שמונה עשר", "תשע עשרה", "תשע עשר",
			"שלוש מאות", "ארבע מאות", "חמש מאות", "שש מאות", "שבע מאות", "שמונה מאות", "תשע מאות",
		}
		sort.SliceStable(p, func(i, j int) bool { return len(p[i]) > len(p[j]) })
		return p
	}()

	numberWords = map[string]struct{}{
		"אחד": {}, "שתיים": {}, "שלוש": {}, "ארבע": {}, "חמש": {}, "שש": {}, "שבע": {}, "שמונה": {}, "תשע": {}, "עשר": {},
		"עשרה": {}, "עשרים": {}, "שלושים": {}, "ארבעים": {}, "חמישים": {}, "שישים": {}, "שבעים": {}, "שמונים": {}, "תשעים": {},
		"מאה": {}, "מאתיים": {},
		"יא": {}, "יב": {}, "יג": {}, "יד": {}, "טו": {}, "טז": {}, "יז": {}, "יח": {}, "יט": {}, "כ": {}, "ל": {},
	}
)

// RemoveNumbers strips Hebrew number phrases and number words from a keyword.
// The keyword is returned unchanged when nothing would be left.
func RemoveNumbers(keyword string) string {
	if keyword == "" {
		return keyword
	}

	result := keyword
	for _, phrase := range numberPhrases {
		if !strings.Contains(result, phrase) {
			continue
		}
		result = strings.ReplaceAll(result, " "+phrase+" ", " ")
		result = strings.ReplaceAll(result, phrase+" ", "")
		result = strings.ReplaceAll(result, " "+phrase, "")
	}

	var kept []string
	for _, w := range strings.Fields(result) {
		if _, isNumber := numberWords[w]; !isNumber {
			kept = append(kept, w)
		}
	}

	if len(kept) == 0 {
		return keyword
	}
	return strings.Join(kept, " ")
}
