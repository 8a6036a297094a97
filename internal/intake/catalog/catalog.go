// Package catalog holds the fixed option lists used by the intake form.
package catalog

// Option is one selectable entry.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Name identifies a catalog.
type Name string

const (
	EntityStatus          Name = "entityStatus"
	Title                 Name = "title"
	RelationType          Name = "relationType"
	Gender                Name = "gender"
	MaritalStatus         Name = "maritalStatus"
	WorkExperience        Name = "workExperience"
	AnnualIncome          Name = "annualIncome"
	Industry              Name = "industrySector"
	OrganizationType      Name = "organizationType"
	ResidentStatus        Name = "residentStatus"
	CurrentResidentStatus Name = "currentResidentStatus"
	CurrentResidentType   Name = "currentResidentType"
	State                 Name = "state"
	Country               Name = "country"
)

const ResidentIndian = "Resident Indian"

var none = Option{Label: "--None--", Value: "None"}

func same(values ...string) []Option {
	out := []Option{none}
	for _, v := range values {
		out = append(out, Option{Label: v, Value: v})
	}
	return out
}

var catalogs = map[Name][]Option{
	EntityStatus:   same("Individual", "H.U.F", "Society", "Trust", "Company"),
	Title:          same("Mr.", "Mrs.", "Ms.", "Dr.", "M/S"),
	RelationType:   same("Son of", "Daughter of", "Wife of"),
	Gender:         same("Male", "Female"),
	MaritalStatus:  same("Single", "Married"),
	WorkExperience: same("0-5 years", "6-10 years", "11-20 years", "More than 20 years"),
	AnnualIncome:   same("5-9 Lakhs", "10-14 Lakhs", "15-20 Lakhs", "21-25 Lakhs", "More than 25 Lakhs"),
	Industry: {
		none,
		{Label: "IT (Information Technology)", Value: "IT"},
		{Label: "Manufacturing", Value: "Manufacturing"},
		{Label: "Financial Services", Value: "Financial Services"},
		{Label: "Retail Services", Value: "Retail Services"},
		{Label: "Travel/Transport", Value: "Travel/Transport"},
		{Label: "TES/BPO/KPO", Value: "TES/BPO/KPO"},
		{Label: "Medical/Pharmaceutical", Value: "Medical/Pharmaceutical"},
		{Label: "Hospitality", Value: "Hospitality"},
		{Label: "Media & Entertainment", Value: "Media & Entertainment"},
		{Label: "Telecom", Value: "Telecom"},
		{Label: "Others", Value: "Others"},
	},
	OrganizationType: {
		none,
		{Label: "Pvt. Ltd.", Value: "Pvt. Ltd."},
		{Label: "Public Ltd.", Value: "Public Ltd."},
		{Label: "Govt. Services", Value: "Govt. Services"},
		{Label: "Self-employed / business", Value: "Self-employed"},
		{Label: "Others", Value: "Others"},
	},
	ResidentStatus:        same(ResidentIndian, "NRI", "POI/OCI"),
	CurrentResidentStatus: same("Owned", "Rented", "Parental", "Company lease"),
	CurrentResidentType:   same("Apartment", "Individual House", "Villa", "Duplex"),
	State: {
		{Label: "Andaman and Nicobar Islands", Value: "AN"},
		{Label: "Andhra Pradesh", Value: "AP"},
		{Label: "Arunachal Pradesh", Value: "AR"},
		{Label: "Assam", Value: "AS"},
		{Label: "Bihar", Value: "BR"},
		{Label: "Chandigarh", Value: "CH"},
		{Label: "Chhattisgarh", Value: "CT"},
		{Label: "Dadra and Nagar Haveli and Daman and Diu", Value: "DH"},
		{Label: "Delhi", Value: "DL"},
		{Label: "Goa", Value: "GA"},
		{Label: "Gujarat", Value: "GJ"},
		{Label: "Haryana", Value: "HR"},
		{Label: "Himachal Pradesh", Value: "HP"},
		{Label: "Jammu and Kashmir", Value: "JK"},
		{Label: "Jharkhand", Value: "JH"},
		{Label: "Karnataka", Value: "KA"},
		{Label: "Kerala", Value: "KL"},
		{Label: "Ladakh", Value: "LA"},
		{Label: "Lakshadweep", Value: "LD"},
		{Label: "Madhya Pradesh", Value: "MP"},
		{Label: "Maharashtra", Value: "MH"},
		{Label: "Manipur", Value: "MN"},
		{Label: "Meghalaya", Value: "ML"},
		{Label: "Mizoram", Value: "MZ"},
		{Label: "Nagaland", Value: "NL"},
		{Label: "Odisha", Value: "OR"},
		{Label: "Puducherry", Value: "PY"},
		{Label: "Punjab", Value: "PB"},
		{Label: "Rajasthan", Value: "RJ"},
		{Label: "Sikkim", Value: "SK"},
		{Label: "Tamil Nadu", Value: "TN"},
		{Label: "Telangana", Value: "TG"},
		{Label: "Tripura", Value: "TR"},
		{Label: "Uttar Pradesh", Value: "UP"},
		{Label: "Uttarakhand", Value: "UT"},
		{Label: "West Bengal", Value: "WB"},
	},
	Country: {
		{Label: "India", Value: "IN"},
	},
}

// Lookup returns a copy of the named catalog, or nil for an unknown name.
func Lookup(name Name) []Option {
	opts, ok := catalogs[name]
	if !ok {
		return nil
	}
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}

// ValueForLabel finds the value whose label matches exactly.
func ValueForLabel(name Name, label string) (string, bool) {
	for _, o := range catalogs[name] {
		if o.Label == label {
			return o.Value, true
		}
	}
	return "", false
}

// CountryCode translates a country name to its code. No match yields "".
func CountryCode(label string) string {
	code, _ := ValueForLabel(Country, label)
	return code
}

// Contains reports whether value is one of the catalog's values.
func Contains(name Name, value string) bool {
	for _, o := range catalogs[name] {
		if o.Value == value {
			return true
		}
	}
	return false
}

// RequiresNRIDetails reports whether the NRI-only block of the form applies.
func RequiresNRIDetails(residentStatus string) bool {
	return residentStatus != ResidentIndian
}
