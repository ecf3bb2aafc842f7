package validation

const (
	MaxShortTextLength = 128
	MaxLongTextLength  = 5120

	// Short text fields:
	AddressField       = "address"
	RAField            = "ra"
	DecField           = "dec"
	MagnitudeField     = "mag"
	ConstellationField = "cen"

	// Long text fields:
	TextField  = "body"
	StoryField = "story"
)

var InjectionPatterns = []string{
	"${{", "{{", "}}", "${", "#{", "{%", "%}", "{{{", // templates/SSTI
	"%0a", "%0d", "%0a%0d", "%00", "%27", "%22", "%3c", "%3e", // encoded attacks (decode first)
	"${jndi:", "ldap://", "ldaps://", // JNDI/ldap
	"eval(", "exec(", "system(", "popen(", // dangerous funcs
}
