package bridgeinfo

// Metadata captures static identifiers for the bridge. Centralising the
// values makes it easy to clone this repository for new deployments.
type Metadata struct {
	Name        string
	BinaryName  string
	Slug        string
	Description string
	Version     string
}

// Info describes the current bridge.
var Info = Metadata{
	Name:        "VoxBridge Whisper Bridge",
	BinaryName:  "bridged",
	Slug:        "whisper-bridge",
	Description: "Local speech-to-text bridge backed by whisper.cpp.",
	Version:     "0.3.0",
}

// TranscriptMetadata produces the standard metadata payload attached
// to emitted transcripts.
func TranscriptMetadata(modelVariant, language string) map[string]string {
	return map[string]string{
		"generator":     Info.Slug,
		"model_variant": modelVariant,
		"language":      language,
	}
}
