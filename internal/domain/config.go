package domain

// Settings are the encoder and matching tunables with their built-in defaults.
type Settings struct {
	Model          string
	Dimensions     int
	TimeoutSeconds int
	TopK           int
	Scorer         string
}

// DefaultSettings returns the defaults of the image encoding service.
func DefaultSettings() Settings {
	return Settings{
		Model:          "clip-vit-b-32",
		Dimensions:     512,
		TimeoutSeconds: 30,
		TopK:           5,
		Scorer:         "inverse_distance",
	}
}

// Categories is the item category vocabulary shared with the classification service.
var Categories = []string{
	"Card", "Headphone", "Key", "Keyboard", "Lapcharger",
	"Laptop", "Mouse", "Smartphone", "Unknown", "Wallets", "backpack",
}

// CategoryUnknown is assigned when the classifier is unsure or unavailable.
const CategoryUnknown = "Unknown"
