package extraction

import (
	"regexp"

	"github.com/Lllllllleong/contractextraction/internal/models"
)

// Record keys shared by the built-in templates.
const (
	FieldBuyerName       = "buyerName"
	FieldSellerName      = "sellerName"
	FieldPropertyAddress = "propertyAddress"
	FieldKeyDates        = "keyDates"
	FieldPrice           = "buyOrOfferPrice"
)

// NoDateFound is reported for purchase and sale contracts without key dates.
const NoDateFound = "No specific date found in the PDF"

// StandardFormRules extracts fields from the standard form contract for
// purchase and sale of real estate.
func StandardFormRules() *RuleSet {
	return &RuleSet{
		DocumentType: models.StandardFormContract,
		Fallback:     models.NotFound,
		Rules: []Rule{
			FieldRule{
				Name:    FieldBuyerName,
				Pattern: regexp.MustCompile(`(?i)PURCHASER[\s\S]{1,20}?is/are[_\s]+([\w\s.]+?)[_\s]*residing`),
				Group:   1,
			},
			FieldRule{
				Name:    FieldSellerName,
				Pattern: regexp.MustCompile(`(?i)SELLER[\s\S]{1,20}?is/are[_\s]+([\w\s.]+?)[_\s]*residing`),
				Group:   1,
			},
			FieldRule{
				Name:    FieldPropertyAddress,
				Pattern: regexp.MustCompile(`(?i)known as[_\s]+([\w\s,.#-]+?)[_\s]*located`),
				Group:   1,
			},
			FieldRule{
				Name:    FieldKeyDates,
				Pattern: regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`),
				Group:   1,
			},
			FieldRule{
				Name:    FieldPrice,
				Pattern: regexp.MustCompile(`(?i)(?:purchase|offer)\s+price\s*(?:is|of|shall be)?[:\s]*(\$\s*[\d,]+(?:\.\d{2})?|[a-z][a-z -]*?\b(?:dollars|only)\b)`),
				Group:   1,
			},
		},
	}
}

// PurchaseSaleRules extracts fields from the purchase and sale contract for
// real property. Seller and buyer are read together from the parties clause,
// which must sit on one line.
func PurchaseSaleRules() *RuleSet {
	return &RuleSet{
		DocumentType: models.PurchaseSaleContract,
		Fallback:     models.NotFound,
		Rules: []Rule{
			FieldRule{
				Name:    FieldPropertyAddress,
				Pattern: regexp.MustCompile(`(?i)property known as\s*([\w\s,.#-]+?\d{5})`),
				Group:   1,
			},
			FieldRule{
				Name:     FieldKeyDates,
				Pattern:  regexp.MustCompile(`(?im)key dates[:\s]*([\w ,/]+)$`),
				Group:    1,
				Fallback: NoDateFound,
			},
			FieldRule{
				Name:    FieldPrice,
				Pattern: regexp.MustCompile(`(?i)purchase price is \$\s*([\d,]+(?:\.\d{2})?|[a-z][a-z\s-]*?\bonly)`),
				Group:   1,
			},
			PairRule{
				Names:   [2]string{FieldSellerName, FieldBuyerName},
				Pattern: regexp.MustCompile(`(?i)between\s+([^\n(]+?)\s*\(\s*["“]?seller["”]?\s*\)[ \t,]*and\s+([^\n(]+?)\s*\(\s*["“]?buyer["”]?\s*\)`),
				Groups:  [2]int{1, 2},
			},
		},
	}
}
