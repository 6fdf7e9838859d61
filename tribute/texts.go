package tribute

// Pad phrases used when a text falls short of WordCount.
const (
	ThanksPad = "I remember you."
	GloryPad  = "You mattered."
)

var thanksFragments = []string{
	"I want to thank you for being my friend in ways that feel too deep for simple sentences. ",
	"You arrived quietly and stayed through ordinary days and the storms, giving steadiness when I needed it most. ",
	"You listened like few ever do — patient, ready with a joke, a memory, a steady hand. ",
	"Your kindness was never loud; it was honest and constant. ",
	"You showed me how small moments could be sacred: the way you laughed at dumb jokes, the late-night messages that turned into safety, the silent understanding when words failed. ",
	"You trusted me with parts of yourself and made me feel seen. ",
	"Even in nothingness, your presence felt like home. ",
	"Those two years we shared — the risky plans, the quiet coffees, the terrible songs we both loved — shaped better parts of who I am. ",
	"I am thankful for every conversation, every shared silence, and every silly dare. ",
	"I will carry your kindness forward by being kinder to others, remembering the softness you taught me. ",
	"Goodbyes are wrong for what we had; instead I will say thank you for being my friend. ",
	"Thank you, chikatto, for everything you gave — for being ordinary and extraordinary all at once. ",
	"I miss you deeply and I will honor you in small, steady ways. ",
}

var gloryFragments = []string{
	"You shone with a quiet brilliance that did not need an audience. ",
	"Your laugh was a comet that warmed the room, and your courage often hid behind gentle words. ",
	"You moved through life with a stubborn tenderness that made ordinary days feel elevated. ",
	"People who met you left with a lighter heart and a memory that kept returning like a favorite refrain. ",
	"Your choices spoke of loyalty; your actions wrote kindness into places others overlooked. ",
	"In your presence, small victories felt sacred and risks felt less lonely. ",
	"You carried both mischief and wisdom, sometimes in the same glance, and you taught others how to balance softness with grit. ",
	"To glorify you is to point to how you made people better — more open, more brave, more willing to try. ",
	"Your name will live in the echoes of laughter you started and the quiet courage you inspired. ",
	"Even now, the way you loved and fought for what mattered feels like a map for the rest of us. ",
	"You were a bright, restless light that never failed to move hearts. ",
	"Your story will be told in small rituals, in the songs we pick, in the promises we keep. ",
	"Rest in the honor you earned every day just by being yourself. ",
}

// ThanksFragments returns a copy of the built-in thank-you fragments.
func ThanksFragments() []string { return append([]string(nil), thanksFragments...) }

// GloryFragments returns a copy of the built-in remembrance fragments.
func GloryFragments() []string { return append([]string(nil), gloryFragments...) }

// Thanks composes the built-in thank-you text.
func Thanks() string { return Compose(thanksFragments, ThanksPad) }

// Glory composes the built-in remembrance text.
func Glory() string { return Compose(gloryFragments, GloryPad) }

// Texts holds both composed texts. It is built once at startup and shared by
// value between the HTTP server and the chat bots.
type Texts struct {
	Thanks string
	Glory  string
}

// Default composes the built-in texts.
func Default() Texts {
	return Texts{Thanks: Thanks(), Glory: Glory()}
}
