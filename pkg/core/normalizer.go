package core

import (
	"errors"
	"strconv"
	"strings"
)

// Normalizer converts raw repository modification descriptors into anchored modifications.
// It returns the anchored list in canonical order, whether the annotation looks wrong, and a
// non-fatal error describing every descriptor that had to be dropped.
type Normalizer interface {
	Normalize(raw, sequence string) ([]Modification, bool, error)
}

// CatalogNormalizer is the default Normalizer. It accepts "pos-ACCESSION" descriptors, as
// written in release files, and "Name@pos" or "ACCESSION@pos" descriptors, separated by
// commas or semicolons. Names are resolved through the catalog.
type CatalogNormalizer struct {
	DB *ModDatabase
}

// NewCatalogNormalizer creates a normalizer over the given catalog (the default catalog when nil).
func NewCatalogNormalizer(db *ModDatabase) *CatalogNormalizer {
	if db == nil {
		db = DefaultModDatabase()
	}
	return &CatalogNormalizer{DB: db}
}

// Normalize implements Normalizer.
func (n *CatalogNormalizer) Normalize(raw, sequence string) ([]Modification, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}

	var (
		mods  []Modification
		errs  []error
		wrong bool
	)

	tokens := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		mod, err := n.parseDescriptor(token)
		if err != nil {
			errs = append(errs, &MalformedModificationError{Sequence: sequence, Descriptor: token, Reason: err.Error()})
			wrong = true
			continue
		}

		// anchor must lie within [N-term, C-term]
		if mod.Position < 0 || mod.Position > len(sequence)+1 {
			errs = append(errs, &MalformedModificationError{
				Sequence:   sequence,
				Descriptor: token,
				Reason:     "position " + strconv.Itoa(mod.Position) + " outside sequence bounds",
			})
			wrong = true
			continue
		}

		if !n.siteMatches(mod, sequence) {
			wrong = true
		}

		mods = append(mods, mod)
	}

	return SortModifications(mods), wrong, errors.Join(errs...)
}

// parseDescriptor parses a single descriptor in either supported syntax
func (n *CatalogNormalizer) parseDescriptor(token string) (Modification, error) {
	if at := strings.LastIndex(token, "@"); at >= 0 {
		nameOrAcc := strings.TrimSpace(token[:at])
		posStr := strings.TrimLeft(strings.TrimSpace(token[at+1:]), "ACDEFGHIKLMNPQRSTVWY")

		pos, err := strconv.Atoi(posStr)
		if err != nil {
			return Modification{}, errors.New("invalid position number")
		}

		accession := nameOrAcc
		if _, ok := n.DB.Lookup(nameOrAcc); !ok {
			if entry, ok := n.DB.LookupName(nameOrAcc); ok {
				accession = entry.Accession
			}
		}
		if accession == "" {
			return Modification{}, errors.New("missing accession")
		}
		return Modification{Position: pos, Accession: accession}, nil
	}

	dash := strings.Index(token, "-")
	if dash <= 0 || dash == len(token)-1 {
		return Modification{}, errors.New("expected 'position-accession' or 'name@position'")
	}

	pos, err := strconv.Atoi(strings.TrimSpace(token[:dash]))
	if err != nil {
		return Modification{}, errors.New("invalid position number")
	}

	return Modification{Position: pos, Accession: strings.TrimSpace(token[dash+1:])}, nil
}

// siteMatches checks a residue-anchored modification against the catalog's allowed sites.
// Terminal anchors and uncatalogued accessions always match.
func (n *CatalogNormalizer) siteMatches(mod Modification, sequence string) bool {
	if mod.Position < 1 || mod.Position > len(sequence) {
		return true
	}
	entry, ok := n.DB.Lookup(mod.Accession)
	if !ok || entry.Sites == "" {
		return true
	}
	return strings.IndexByte(entry.Sites, sequence[mod.Position-1]) >= 0
}
