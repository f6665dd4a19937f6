package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/canvas-etl/internal/config"
)

// ResolvePartner returns the id of the canvas type's partner, creating the
// partner on first use. The first type stored for a name is kept.
func ResolvePartner(ctx context.Context, st Store, ct config.CanvasType) (int64, error) {
	id, err := st.ResolvePartner(ctx, strings.TrimSpace(ct.PartnerName), strings.TrimSpace(ct.PartnerType))
	if err != nil {
		return 0, fmt.Errorf("resolve partner %q: %w", ct.PartnerName, err)
	}
	return id, nil
}

// BuildCompany extracts the company columns of a mapped row.
// Text is trimmed; dates go through NormalizeDate.
func BuildCompany(rec Record, partnerID int64) Company {
	return Company{
		CompanyName:             strings.TrimSpace(rec.Get(FieldCompanyName)),
		AffiliateNumber:         strings.TrimSpace(rec.Get(FieldAffiliateNumber)),
		AdhesionDate:            NormalizeDate(rec.Get(FieldAdhesionDate)),
		AffiliationDate:         NormalizeDate(rec.Get(FieldAffiliationDate)),
		AdherentType:            strings.TrimSpace(rec.Get(FieldAdherentType)),
		MandatedCompanyName:     strings.TrimSpace(rec.Get(FieldMandatedCompanyName)),
		MandatedAffiliateNumber: strings.TrimSpace(rec.Get(FieldMandatedAffiliateNumber)),
		PartnerID:               partnerID,
	}
}

// ResolveCompany returns the id of the row's company for partnerID,
// creating it from the row when no company has that affiliate number yet.
func ResolveCompany(ctx context.Context, st Store, rec Record, partnerID int64) (int64, error) {
	c := BuildCompany(rec, partnerID)
	id, err := st.ResolveCompany(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("resolve company %q: %w", c.AffiliateNumber, err)
	}
	return id, nil
}
