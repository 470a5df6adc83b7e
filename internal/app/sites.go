package app

import "ipormac/internal/domain"

// Sites is the catalogue of practice sites. Unknown keys resolve to the default site.
type Sites struct {
	byKey map[string]domain.Site
}

// NewSites builds a catalogue from overrides. The default site is always present;
// zero-valued fields of an override inherit from it.
func NewSites(overrides []domain.Site) *Sites {
	def := domain.DefaultSite()
	s := &Sites{byKey: map[string]domain.Site{def.Key: def}}
	for _, o := range overrides {
		if o.Key == "" {
			continue
		}
		base, ok := s.byKey[o.Key]
		if !ok {
			base = def
			base.Key = o.Key
		}
		s.byKey[o.Key] = merge(base, o)
	}
	return s
}

func merge(base, o domain.Site) domain.Site {
	if o.Title != "" {
		base.Title = o.Title
	}
	if o.Subtitle != "" {
		base.Subtitle = o.Subtitle
	}
	if o.Icon != "" {
		base.Icon = o.Icon
	}
	if o.MaxPoints > 0 {
		base.MaxPoints = o.MaxPoints
	}
	if o.CorrectPoints > 0 {
		base.CorrectPoints = o.CorrectPoints
	}
	if base.CorrectPoints > base.MaxPoints {
		base.CorrectPoints = base.MaxPoints
	}
	if ValidateLevels(o.Levels) == nil {
		base.Levels = o.Levels
	}
	return base
}

// Lookup returns the site for key, or the default site.
func (s *Sites) Lookup(key string) domain.Site {
	if site, ok := s.byKey[key]; ok {
		return site
	}
	return s.byKey[domain.DefaultSiteKey]
}

// LevelsFor returns the ladder for a site, falling back to the default ladder.
func (s *Sites) LevelsFor(key string) []domain.Level {
	site := s.Lookup(key)
	if len(site.Levels) > 0 {
		return site.Levels
	}
	return domain.DefaultLevels()
}
