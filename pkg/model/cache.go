package model

// CacheDefinition is a named, inheritable cache shape: the paths it
// persists, the ordered list of version probes that may fold a tool
// version into its key, and the source-file groups whose content
// checksum it may also fold in (spec.md 4.4, 6).
type CacheDefinition struct {
	// Paths are the filesystem paths this cache persists.
	Paths []string `yaml:"paths" json:"paths" jsonschema:"description=Filesystem paths persisted by this cache,required"`

	// Versions is an ordered detection list: the first VersionSource
	// name that resolves contributes its {tool, version} pair to the
	// key (spec.md 6's "-<tool><version>" segment). Listing more than
	// one models "detect whichever of these is installed".
	Versions []Detectable `yaml:"versions,omitempty" json:"versions,omitempty" jsonschema:"description=Ordered version-source detection list"`

	// ChecksumSources resolves a source-file group (or several) whose
	// combined hash becomes the key's trailing checksum segment.
	// Exactly one is required to resolve unless Optional is set.
	ChecksumSources Detectable `yaml:"checksum_sources,omitempty" json:"checksum_sources,omitempty" jsonschema:"description=Source-file groups contributing the key checksum"`

	// Backend names the skip/restore backend this cache uses when the
	// provider has no native cache action (spec.md 5's "native-provider
	// cache, Redis, S3-compatible"). Empty means "native".
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"description=Cache storage backend,enum=native,enum=redis,enum=s3,default=native"`
}

// Detectable models the spec's detect:[...] / detect_optional choice
// lists: an ordered set of candidate names where the first one that
// resolves wins, and Optional controls whether zero resolving is an
// error or simply "contribute nothing".
type Detectable struct {
	Detect   []string `yaml:"detect,omitempty" json:"detect,omitempty" jsonschema:"description=Ordered candidate names; first to resolve wins"`
	Optional bool     `yaml:"optional,omitempty" json:"optional,omitempty" jsonschema:"description=If true, none resolving is not an error"`
}

// IsEmpty reports whether no candidates were declared at all.
func (d Detectable) IsEmpty() bool { return len(d.Detect) == 0 }
