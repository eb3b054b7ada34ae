package coach

// Context is optional coaching context attached to a request.
type Context struct {
	Topic               string
	AgeRange            string
	SituationType       string
	Attempted           string
	Urgency             bool
	UserNotes           string
	ConversationHistory string
}

// AgeRanges lists the accepted values for Context.AgeRange.
var AgeRanges = []string{"0-2", "3-5", "6-9", "10-12", "teen"}

// SituationTypes lists the accepted values for Context.SituationType.
var SituationTypes = []string{
	"tantrum",
	"bedtime",
	"sibling-conflict",
	"screens",
	"boundaries",
	"transitions",
	"public-meltdown",
	"potty-training",
	"sharing",
	"listening",
	"other",
}
