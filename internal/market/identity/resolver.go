package identity

import (
	"context"
	"math"

	"github.com/cpf-camaras/market/pkg/slogx"
)

const (
	nameWeight    = 0.65
	companyWeight = 0.35
	chamberBonus  = 0.05

	// weakClaimFloor is the minimum ratio used when the caller supplied
	// neither a phone nor a chamber.
	weakClaimFloor = 0.98
)

// Config holds the resolver tunables.
type Config struct {
	NameMinRatio    float64
	CompanyMinRatio float64
	PhoneMinDigits  int

	// Debug emits one trace line per resolution with only the outcome and
	// the best score.
	Debug bool
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		NameMinRatio:    0.90,
		CompanyMinRatio: 0.85,
		PhoneMinDigits:  6,
	}
}

// Claims is what a person who forgot their password tells us about
// themselves. Every field is optional.
type Claims struct {
	FullName  string
	Company   string
	Phone     string
	ChamberID string
}

// Candidate is the slice of a stored user the resolver looks at.
type Candidate struct {
	UserID    string
	Name      string
	Company   string
	Phone     string
	ChamberID string

	// Inactive marks annulled or suspended accounts. Any active candidate
	// that passes outranks every inactive one.
	Inactive bool
}

// Match is the winning candidate.
type Match struct {
	UserID       string
	Score        float64
	NameRatio    float64
	CompanyRatio float64
	Inactive     bool
}

// Resolver scores candidates against identity claims.
type Resolver struct {
	cfg Config
}

func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Config returns the thresholds in use.
func (r *Resolver) Config() Config { return r.cfg }

// Resolve returns the best candidate passing every constraint. Active
// candidates rank ahead of inactive ones, then by score, and equal scores go
// to the lowest user id. Finding nobody is reported through ok, never as
// an error.
func (r *Resolver) Resolve(ctx context.Context, claims Claims, candidates []Candidate) (Match, bool) {
	name := Normalize(claims.FullName)
	company := Normalize(claims.Company)
	phone := Digits(claims.Phone)
	chamber := claims.ChamberID

	nameMin, companyMin := r.cfg.NameMinRatio, r.cfg.CompanyMinRatio
	if phone == "" && chamber == "" {
		nameMin = math.Max(nameMin, weakClaimFloor)
		companyMin = math.Max(companyMin, weakClaimFloor)
	}

	var best Match
	found := false
	for _, c := range candidates {
		bonus := 0.0
		if chamber != "" && c.ChamberID != "" {
			if c.ChamberID == chamber {
				bonus = chamberBonus
			} else {
				if phone == "" {
					continue
				}
				bonus = -chamberBonus
			}
		}

		if phone != "" && !PhoneMatches(phone, c.Phone, r.cfg.PhoneMinDigits) {
			continue
		}

		nameRatio := ratioOrZero(name, Normalize(c.Name))
		if name != "" && nameRatio < nameMin {
			continue
		}
		companyRatio := ratioOrZero(company, Normalize(c.Company))
		if company != "" && companyRatio < companyMin {
			continue
		}

		m := Match{
			UserID:       c.UserID,
			Score:        nameWeight*nameRatio + companyWeight*companyRatio + bonus,
			NameRatio:    nameRatio,
			CompanyRatio: companyRatio,
			Inactive:     c.Inactive,
		}
		if !found || outranks(m, best) {
			best = m
			found = true
		}
	}

	if r.cfg.Debug {
		bestScore := -1.0
		if found {
			bestScore = best.Score
		}
		slogx.FromContext(ctx).Info("pwreset identity match",
			"matched", found,
			"best_score", math.Round(bestScore*1000)/1000,
		)
	}
	return best, found
}

func outranks(a, b Match) bool {
	if a.Inactive != b.Inactive {
		return !a.Inactive
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.UserID < b.UserID
}

func ratioOrZero(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return Ratio(a, b)
}
