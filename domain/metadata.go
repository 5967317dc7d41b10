package domain

const (
	MetadataOffChain = byte(0)
	MetadataOnChain  = byte(1)
)

// Key names whose hashes are mapped back when on-chain content is decoded.
var KnownMetadataKeys = []string{
	"uri",
	"name",
	"description",
	"image",
	"image_data",
	"symbol",
	"decimals",
	"amount_style",
	"render_type",
}

// Metadata is the jetton content, either a URI pointing off-chain or a set of
// on-chain entries. Entries whose key name is unknown are keyed "0x" + hex(hash).
type Metadata struct {
	OnChain bool              `json:"on_chain"`
	Uri     string            `json:"uri,omitempty"`
	Entries map[string][]byte `json:"entries,omitempty"`
}

func NewOffChainMetadata(uri string) Metadata {
	return Metadata{Uri: uri}
}

func NewOnChainMetadata(entries map[string]string) Metadata {
	res := Metadata{OnChain: true, Entries: make(map[string][]byte, len(entries))}
	for key, value := range entries {
		res.Entries[key] = []byte(value)
	}
	return res
}
