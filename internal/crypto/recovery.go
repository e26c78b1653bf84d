package crypto

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// RecoveryWords is the number of words in a generated recovery phrase.
const RecoveryWords = 12

// GenerateRecoveryKey returns RecoveryWords words drawn uniformly (with replacement)
// from wordList and joined by hyphens. The phrase is shown to the user once.
func GenerateRecoveryKey() (string, error) {
	limit := big.NewInt(int64(len(wordList)))
	words := make([]string, RecoveryWords)
	for i := range words {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		words[i] = wordList[n.Int64()]
	}
	return strings.Join(words, "-"), nil
}

var wordList = [...]string{
	"acid", "acorn", "actor", "adapt", "agent", "alarm", "album", "alert",
	"alien", "alley", "amber", "anchor", "angle", "ankle", "apple", "april",
	"arena", "armor", "arrow", "atlas", "attic", "audio", "autumn", "avocado",
	"badge", "bagel", "baker", "balance", "bamboo", "banana", "banner", "barrel",
	"basin", "basket", "beacon", "beaver", "berry", "bicycle", "bishop", "blade",
	"blanket", "blossom", "bonus", "border", "bottle", "bracket", "branch", "breeze",
	"brick", "bridge", "bronze", "bucket", "buffalo", "bundle", "butter", "button",
	"cabin", "cactus", "camera", "canal", "candle", "canvas", "canyon", "carbon",
	"carpet", "castle", "cedar", "cereal", "chalk", "cherry", "chimney", "cinema",
	"circle", "citrus", "clover", "cobalt", "coconut", "comet", "copper", "coral",
	"cotton", "cradle", "crater", "cricket", "crystal", "cushion", "dagger", "daisy",
	"dancer", "delta", "denim", "desert", "diamond", "dinner", "dolphin", "donkey",
	"dragon", "drawer", "dune", "eagle", "echo", "eclipse", "elbow", "ember",
	"emerald", "engine", "epoch", "estate", "fabric", "falcon", "feather", "fennel",
	"ferry", "fiber", "fiddle", "filter", "flame", "flute", "forest", "fossil",
	"fountain", "fox", "frost", "galaxy", "garden", "garlic", "gazelle", "gecko",
	"ginger", "glacier", "globe", "gopher", "granite", "grape", "gravel", "guitar",
	"hammer", "harbor", "harvest", "hazel", "helmet", "hermit", "hollow", "honey",
	"horizon", "hornet", "husky", "igloo", "indigo", "island", "ivory", "jacket",
	"jaguar", "jasmine", "jelly", "jigsaw", "jungle", "kayak", "kernel", "kettle",
	"kiwi", "koala", "ladder", "lagoon", "lantern", "laptop", "lemon", "lentil",
	"library", "lilac", "lizard", "lobster", "locket", "lotus", "magnet", "mango",
	"maple", "marble", "meadow", "melon", "meteor", "mirror", "mitten", "monkey",
	"mosaic", "muffin", "museum", "napkin", "nebula", "needle", "nickel", "noodle",
	"nutmeg", "oasis", "ocean", "olive", "onion", "orbit", "orchid", "otter",
	"oyster", "paddle", "palace", "panda", "paper", "parrot", "pebble", "pencil",
	"pepper", "piano", "pickle", "pigeon", "pillow", "pirate", "planet", "plum",
	"pocket", "potato", "prism", "pumpkin", "puzzle", "quartz", "quill", "rabbit",
	"radar", "radish", "raven", "ribbon", "river", "robin", "rocket", "saddle",
	"salmon", "sapphire", "scarf", "shadow", "silver", "sketch", "sparrow", "spider",
	"spruce", "squash", "summit", "sunset", "tablet", "temple", "thunder", "tiger",
	"timber", "tomato", "torch", "tulip", "tundra", "turtle", "umbrella", "unicorn",
}
