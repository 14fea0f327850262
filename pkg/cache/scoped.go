package cache

// ScopedKeyer wraps a Keyer with a prefix, so API tenants (or separate
// clusters sharing one Redis) never read each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "cluster:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer falls back to DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SummaryKey returns the prefixed summary key.
func (k *ScopedKeyer) SummaryKey(reportHash string) string {
	return k.prefix + k.inner.SummaryKey(reportHash)
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(reportHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(reportHash, opts)
}
