package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
)

// Supplier tags used across the dispatcher, config and queue.
const (
	SupplierCLF         = "clf"
	SupplierHunts       = "hunts"
	SupplierAvogel      = "avogel"
	SupplierBiocare     = "biocare"
	SupplierBionature   = "bionature"
	SupplierEmporio     = "emporio"
	SupplierEssential   = "essential"
	SupplierKinetic     = "kinetic"
	SupplierLewtress    = "lewtress"
	SupplierNaturesAid  = "naturesaid"
	SupplierNaturesPlus = "naturesplus"
	SupplierNestle      = "nestle"
	SupplierPestokill   = "pestokill"
	SupplierTonyrefail  = "tonyrefail"
	SupplierViridian    = "viridian"
	SupplierWatsonPratt = "watsonpratt"
)

// ErrUnsupportedSupplier is returned when neither the sender domain nor the
// document content matches a known supplier and no fallback is configured.
var ErrUnsupportedSupplier = errors.New("unsupported supplier")

// ParseFunc adapts an extractor to the uniform dispatcher signature. Most
// extractors return one record; Hunts returns several, Essential can fail.
type ParseFunc func(s *Set, text string) ([]*invoice.Record, error)

func single(f func(*Set, string) *invoice.Record) ParseFunc {
	return func(s *Set, text string) ([]*invoice.Record, error) {
		return []*invoice.Record{f(s, text)}, nil
	}
}

type entry struct {
	tag     string
	domains []string
	content *regexp.Regexp
	run     ParseFunc
}

// entries is the ordered supplier registry. Evaluation is first match wins,
// so suppliers with the most distinctive content markers sit higher than
// ones matched by generic words.
var entries = []entry{
	{
		tag:     SupplierHunts,
		domains: []string{"huntsfoodgroup.co.uk"},
		content: regexp.MustCompile(`Hunt['’]s Food Group`),
		run: func(s *Set, text string) ([]*invoice.Record, error) {
			return s.ParseHunts(text), nil
		},
	},
	{
		tag:     SupplierCLF,
		domains: []string{"clfdistribution.com", "clf.co.uk"},
		content: regexp.MustCompile(`(?i)CLF\s*Distribution`),
		run:     single((*Set).ParseCLF),
	},
	{
		tag:     SupplierEssential,
		domains: []string{"essential-trading.coop"},
		content: regexp.MustCompile(`(?i)Essential\s*Trading`),
		run: func(s *Set, text string) ([]*invoice.Record, error) {
			rec, err := s.ParseEssential(text)
			if err != nil {
				return nil, err
			}
			return []*invoice.Record{rec}, nil
		},
	},
	{
		tag:     SupplierAvogel,
		domains: []string{"avogel.co.uk", "bioforce.co.uk"},
		content: regexp.MustCompile(`(?i)A\.?\s*Vogel|Bioforce`),
		run:     single((*Set).ParseAvogel),
	},
	{
		tag:     SupplierBiocare,
		domains: []string{"biocare.co.uk"},
		content: regexp.MustCompile(`(?i)BioCare|Invoice No\.?\s*BC\d{6}`),
		run:     single((*Set).ParseBiocare),
	},
	{
		tag:     SupplierBionature,
		domains: []string{"bio-nature.co.uk"},
		content: regexp.MustCompile(`(?i)Bio[\s-]*Nature`),
		run:     single((*Set).ParseBionature),
	},
	{
		tag:     SupplierEmporio,
		domains: []string{"emporiofoods.co.uk"},
		content: regexp.MustCompile(`(?i)Emporio`),
		run:     single((*Set).ParseEmporio),
	},
	{
		tag:     SupplierKinetic,
		domains: []string{"kinetic4health.co.uk"},
		content: regexp.MustCompile(`(?i)Kinetic\s*Enterprises|\bSIN\d{5,10}\b`),
		run:     single((*Set).ParseKinetic),
	},
	{
		tag:     SupplierLewtress,
		domains: []string{"lewtress.co.uk"},
		content: regexp.MustCompile(`(?i)Lewtress`),
		run:     single((*Set).ParseLewtress),
	},
	{
		tag:     SupplierNaturesPlus,
		domains: []string{"naturesplus.co.uk", "naturesplus.com"},
		content: regexp.MustCompile(`(?i)Natures\s*Plus`),
		run:     single((*Set).ParseNaturesPlus),
	},
	{
		tag:     SupplierNaturesAid,
		domains: []string{"naturesaid.co.uk"},
		content: regexp.MustCompile(`(?i)Natures\s*Aid`),
		run:     single((*Set).ParseNaturesAid),
	},
	{
		tag:     SupplierNestle,
		domains: []string{"nestle.com", "uk.nestle.com"},
		content: regexp.MustCompile(`(?i)Nestl[eé]`),
		run:     single((*Set).ParseNestle),
	},
	{
		tag:     SupplierPestokill,
		domains: []string{"pestokill.co.uk"},
		content: regexp.MustCompile(`(?i)Pestokill`),
		run:     single((*Set).ParsePestokill),
	},
	{
		tag:     SupplierTonyrefail,
		domains: []string{"tonyrefailapiary.co.uk"},
		content: regexp.MustCompile(`(?i)Tonyrefail`),
		run:     single((*Set).ParseTonyrefail),
	},
	{
		tag:     SupplierViridian,
		domains: []string{"viridian-nutrition.com"},
		content: regexp.MustCompile(`(?i)Viridian`),
		run:     single((*Set).ParseViridian),
	},
	{
		tag:     SupplierWatsonPratt,
		domains: []string{"watsonandpratt.co.uk"},
		content: regexp.MustCompile(`(?i)Watson\s*&\s*Pratt|\bIN-\d{4,}\b`),
		run:     single((*Set).ParseWatsonPratt),
	},
}

// Dispatcher routes document text to the right extractor. The sender's
// e-mail domain is a weak prior only: forwarded mail loses the original
// domain, so a content match always wins a disagreement.
type Dispatcher struct {
	set      *Set
	log      *zap.Logger
	fallback string
}

// NewDispatcher builds a dispatcher around the extractor set. fallback is
// the supplier tag used when nothing matches; empty means no-match is a
// hard failure.
func NewDispatcher(set *Set, log *zap.Logger, fallback string) *Dispatcher {
	return &Dispatcher{set: set, log: log, fallback: fallback}
}

func findTag(tag string) *entry {
	for i := range entries {
		if entries[i].tag == tag {
			return &entries[i]
		}
	}
	return nil
}

func matchDomain(senderDomain string) *entry {
	d := strings.ToLower(strings.TrimSpace(senderDomain))
	if d == "" {
		return nil
	}
	for i := range entries {
		for _, known := range entries[i].domains {
			if d == known {
				return &entries[i]
			}
		}
	}
	return nil
}

func matchContent(text string) *entry {
	for i := range entries {
		if entries[i].content.MatchString(text) {
			return &entries[i]
		}
	}
	return nil
}

// Detect returns the supplier tag for the given text and sender domain, or
// ErrUnsupportedSupplier.
func (d *Dispatcher) Detect(text, senderDomain string) (string, error) {
	e, err := d.resolve(text, senderDomain)
	if err != nil {
		return "", err
	}
	return e.tag, nil
}

func (d *Dispatcher) resolve(text, senderDomain string) (*entry, error) {
	byDomain := matchDomain(senderDomain)
	byContent := matchContent(text)

	if byContent != nil {
		if byDomain != nil && byDomain.tag != byContent.tag {
			d.log.Warn("sender domain disagrees with document content, using content",
				zap.String("sender_domain", senderDomain),
				zap.String("domain_supplier", byDomain.tag),
				zap.String("content_supplier", byContent.tag))
		}
		return byContent, nil
	}
	if byDomain != nil {
		return byDomain, nil
	}
	if d.fallback != "" {
		if e := findTag(d.fallback); e != nil {
			d.log.Warn("no supplier matched, using fallback extractor",
				zap.String("fallback", d.fallback))
			return e, nil
		}
		return nil, fmt.Errorf("%w: fallback supplier %q not registered", ErrUnsupportedSupplier, d.fallback)
	}
	return nil, ErrUnsupportedSupplier
}

// Parse selects an extractor and runs it, returning the resolved supplier
// tag with the parsed records.
func (d *Dispatcher) Parse(text, senderDomain string) (string, []*invoice.Record, error) {
	e, err := d.resolve(text, senderDomain)
	if err != nil {
		return "", nil, err
	}
	records, err := e.run(d.set, text)
	if err != nil {
		return e.tag, nil, fmt.Errorf("parse %s: %w", e.tag, err)
	}
	return e.tag, records, nil
}

// Tags returns the registered supplier tags in registry order.
func Tags() []string {
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = entries[i].tag
	}
	return out
}
