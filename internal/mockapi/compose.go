package mockapi

import (
	"fmt"
	"strings"

	"github.com/abelbrown/tenderwatch/internal/model"
)

// phrases holds the canned wording per language.
type phrases struct {
	summary   string
	buyer     string
	lots      string
	deadline  string
	objective string
	eligible  string
	smeGood   string
	smeHard   string
	answer    string
}

var wording = map[string]phrases{
	"fr": {
		summary:   "Résumé",
		buyer:     "Pouvoir adjudicateur",
		lots:      "Lots",
		deadline:  "Date limite de remise des offres",
		objective: "Exécuter les prestations décrites dans",
		eligible:  "Attestations ONSS et fiscales à jour",
		smeGood:   "Lots de taille raisonnable, accessibles aux PME.",
		smeHard:   "Volume important, une association momentanée est conseillée.",
		answer:    "D'après les documents du marché",
	},
	"nl": {
		summary:   "Samenvatting",
		buyer:     "Aanbestedende overheid",
		lots:      "Percelen",
		deadline:  "Uiterste datum voor indiening",
		objective: "De prestaties uitvoeren beschreven in",
		eligible:  "Geldige RSZ- en fiscale attesten",
		smeGood:   "Percelen van redelijke omvang, toegankelijk voor kmo's.",
		smeHard:   "Groot volume, een tijdelijke handelsvennootschap is aangewezen.",
		answer:    "Volgens de opdrachtdocumenten",
	},
	"en": {
		summary:   "Summary",
		buyer:     "Contracting authority",
		lots:      "Lots",
		deadline:  "Tender submission deadline",
		objective: "Deliver the services described in",
		eligible:  "Up-to-date social security and tax certificates",
		smeGood:   "Reasonably sized lots, accessible to SMEs.",
		smeHard:   "Large volume, a joint venture is advisable.",
		answer:    "According to the tender documents",
	},
}

func wordingFor(lang string) phrases {
	if p, ok := wording[lang]; ok {
		return p
	}
	return wording["en"]
}

// composeSummary renders a markdown summary of n in lang.
func composeSummary(n *notice, lang string) string {
	p := wordingFor(lang)
	var b strings.Builder
	fmt.Fprintf(&b, "**%s: %s**\n\n", p.summary, n.Title)
	if org := n.OrganisationFor(lang); org != "" {
		fmt.Fprintf(&b, "- %s: %s\n", p.buyer, org)
	}
	if len(n.lots) > 0 {
		titles := make([]string, 0, len(n.lots))
		for _, l := range n.lots {
			titles = append(titles, l.Title)
		}
		fmt.Fprintf(&b, "- %s: %s\n", p.lots, strings.Join(titles, "; "))
	}
	if n.DeadlineAt != nil {
		fmt.Fprintf(&b, "- %s: %s\n", p.deadline, n.DeadlineAt.Format("2006-01-02"))
	}
	return strings.TrimSpace(b.String())
}

// composeAnalysis builds the structured analysis of d.
func composeAnalysis(n *notice, d *document, lang string) model.StructuredAnalysis {
	p := wordingFor(lang)
	a := model.StructuredAnalysis{
		Summary:     fmt.Sprintf("%s (%s)", d.Title, n.Title),
		Objectives:  []string{fmt.Sprintf("%s %q.", p.objective, d.Title)},
		Eligibility: []string{p.eligible},
	}
	for _, l := range n.lots {
		a.Lots = append(a.Lots, fmt.Sprintf("%s: %s", l.Number, l.Title))
	}
	if n.DeadlineAt != nil {
		a.Deadlines = append(a.Deadlines, fmt.Sprintf("%s: %s", p.deadline, n.DeadlineAt.Format("2006-01-02 15:04")))
	}

	score := 4
	a.SMERationale = p.smeGood
	if n.EstimatedValue != nil && *n.EstimatedValue > 1_000_000 && len(n.lots) < 3 {
		score = 2
		a.SMERationale = p.smeHard
	}
	a.SMEScore = &score
	return a
}

// composeAnswer answers question by pointing at the cited documents.
func composeAnswer(n *notice, question, lang string, sources []string) string {
	p := wordingFor(lang)
	return fmt.Sprintf("%s (%s), %q: %s.", p.answer, strings.Join(sources, ", "), strings.TrimSpace(question), n.Title)
}
