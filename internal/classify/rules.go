package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/cases"

	"github.com/dshills/privfilter/internal/document"
	"github.com/dshills/privfilter/internal/flatten"
)

// ErrUnclassifiable marks a rule that could not evaluate an entry. The rule
// is skipped for that entry only.
var ErrUnclassifiable = errors.New("unclassifiable entry")

// Rule recognizes one kind of sensitive field.
type Rule interface {
	ID() string
	Test(e flatten.Entry) (Match, bool, error)
}

// KeyRule matches object keys along a field path. Keys are case folded and
// stripped of everything but letters and digits before matching, so
// "Date_Of-Birth" and "dateofbirth" are the same key.
type KeyRule struct {
	Name     string
	Category Category
	Severity Severity
	Pattern  *regexp.Regexp
	// AnySegment matches every key on the path instead of only the last.
	AnySegment bool
}

func (r *KeyRule) ID() string { return r.Name }

func (r *KeyRule) Test(e flatten.Entry) (Match, bool, error) {
	if document.IsContainer(e.Value) {
		return Match{}, false, unclassifiable(r.Name, e, "container value")
	}
	if e.Value == nil || e.Value == "" {
		return Match{}, false, nil
	}
	keys, err := flatten.Keys(e.Path)
	if err != nil {
		return Match{}, false, errors.Mark(errors.Wrapf(err, "rule %s", r.Name), ErrUnclassifiable)
	}
	if len(keys) == 0 {
		return Match{}, false, nil
	}
	if !r.AnySegment {
		keys = keys[len(keys)-1:]
	}
	for _, k := range keys {
		if r.Pattern.MatchString(NormalizeKey(k)) {
			return Match{Category: r.Category, Severity: r.Severity}, true, nil
		}
	}
	return Match{}, false, nil
}

// ValueRule matches string leaf values.
type ValueRule struct {
	Name     string
	Category Category
	Severity Severity
	Pattern  *regexp.Regexp
}

func (r *ValueRule) ID() string { return r.Name }

func (r *ValueRule) Test(e flatten.Entry) (Match, bool, error) {
	s, ok := e.Value.(string)
	if !ok {
		return Match{}, false, unclassifiable(r.Name, e, "value is "+document.Kind(e.Value)+", want string")
	}
	if r.Pattern.MatchString(strings.TrimSpace(s)) {
		return Match{Category: r.Category, Severity: r.Severity}, true, nil
	}
	return Match{}, false, nil
}

// NormalizeKey folds case and drops separators and punctuation.
func NormalizeKey(k string) string {
	folded := cases.Fold().String(k)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, folded)
}

func unclassifiable(rule string, e flatten.Entry, reason string) error {
	return errors.Mark(errors.Newf("rule %s: %s at %s", rule, reason, e.Path), ErrUnclassifiable)
}

func keyPattern(words ...string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^(%s)$`, strings.Join(words, "|")))
}

// DefaultRules returns the built-in rule set in evaluation order. Each call
// returns fresh values.
func DefaultRules() []Rule {
	return []Rule{
		&KeyRule{
			Name: "identity-key", Category: CategoryIdentity, Severity: SeverityHigh,
			Pattern: keyPattern("nric", "fin", "uin", "ssn", "nationalid", "nationalidnumber",
				"idnumber", "idno", "identitynumber", "identificationnumber", "passportnumber",
				"passportno", "taxid", "tin"),
		},
		&KeyRule{
			Name: "birthdate-key", Category: CategoryBirthdate, Severity: SeverityHigh,
			Pattern: keyPattern("dob", "dateofbirth", "birthdate", "birthday"),
		},
		&KeyRule{
			Name: "contact-email-key", Category: CategoryContact, Severity: SeverityMedium,
			Pattern: keyPattern("email", "emailaddress", "mail"),
		},
		&KeyRule{
			Name: "contact-phone-key", Category: CategoryContact, Severity: SeverityMedium,
			Pattern: keyPattern("phone", "phonenumber", "phoneno", "mobile", "mobilenumber",
				"mobileno", "telephone", "tel", "handphone", "contactnumber"),
		},
		&KeyRule{
			Name: "postal-key", Category: CategoryPostal, Severity: SeverityLow,
			Pattern: keyPattern("postal", "postalcode", "postcode", "zip", "zipcode"),
		},
		&KeyRule{
			Name: "name-key", Category: CategoryName, Severity: SeverityMedium,
			Pattern: keyPattern("name", "fullname", "firstname", "lastname", "givenname",
				"givennames", "familyname", "surname", "middlename", "maidenname", "preferredname"),
		},
		&KeyRule{
			Name: "demographic-key", Category: CategoryDemographic, Severity: SeverityMedium,
			Pattern: keyPattern("gender", "sex", "nationality", "race", "ethnicity", "religion",
				"maritalstatus"),
		},
		&KeyRule{
			Name: "address-segment", Category: CategoryAddress, Severity: SeverityMedium,
			Pattern: keyPattern("address", "addresses", "homeaddress", "residentialaddress",
				"mailingaddress", "registeredaddress", "street", "streetname", "streetaddress",
				`addressline\d*`),
			AnySegment: true,
		},
		&ValueRule{
			Name: "identity-value", Category: CategoryIdentity, Severity: SeverityHigh,
			Pattern: regexp.MustCompile(`^[STFGM]\d{7}[A-Z]$`),
		},
		&ValueRule{
			Name: "email-value", Category: CategoryContact, Severity: SeverityMedium,
			Pattern: regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}$`),
		},
		&ValueRule{
			Name: "phone-value", Category: CategoryContact, Severity: SeverityMedium,
			Pattern: regexp.MustCompile(`^\+\d[\d ()-]{6,18}\d$`),
		},
		&ValueRule{
			Name: "postal-value", Category: CategoryPostal, Severity: SeverityLow,
			Pattern: regexp.MustCompile(`^\d{6}$`),
		},
		newCredentialRule(),
	}
}
