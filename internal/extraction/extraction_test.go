package extraction

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/Lllllllleong/contractextraction/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standardFormText = `STANDARD FORM CONTRACT FOR PURCHASE AND SALE OF REAL ESTATE
PURCHASER(S): is/are ____ John Q. Doe ____ residing at 4 Elm Road
SELLER(S): is/are ____ Jane Roe ____ residing at 9 Oak Lane
The property known as ____ 12 Main Street, Springfield ____ located in Sangamon County.
Closing shall occur on or before 04/01/2024 and possession on 04/15/2024.
The purchase price is $285,000.00 payable at closing.
`

const purchaseSaleText = `PURCHASE AND SALE CONTRACT FOR REAL PROPERTY
This contract is made between Robert Miles ("Seller") and Anita Patel ("Buyer").
1. The property known as 400 Lake Shore Drive, Unit 5, Chicago 60606 is sold as is.
2. The purchase price is $ ninety five thousand and ninety seven only.
Key Dates: closing March 3, 2024
`

func TestStandardFormExtraction(t *testing.T) {
	record := StandardFormRules().Extract(standardFormText)

	assert.Equal(t, models.StandardFormContract, record.Type)
	assert.Equal(t, []string{FieldBuyerName, FieldSellerName, FieldPropertyAddress, FieldKeyDates, FieldPrice}, record.Keys())
	assert.Equal(t, map[string]string{
		FieldBuyerName:       "John Q. Doe",
		FieldSellerName:      "Jane Roe",
		FieldPropertyAddress: "12 Main Street, Springfield",
		FieldKeyDates:        "04/01/2024",
		FieldPrice:           "$285,000.00",
	}, record.Map())
}

func TestPurchaseSaleExtraction(t *testing.T) {
	record := PurchaseSaleRules().Extract(purchaseSaleText)

	assert.Equal(t, []string{FieldPropertyAddress, FieldKeyDates, FieldPrice, FieldSellerName, FieldBuyerName}, record.Keys())
	assert.Equal(t, map[string]string{
		FieldPropertyAddress: "400 Lake Shore Drive, Unit 5, Chicago 60606",
		FieldKeyDates:        "closing March 3, 2024",
		FieldPrice:           "ninety five thousand and ninety seven only",
		FieldSellerName:      "Robert Miles",
		FieldBuyerName:       "Anita Patel",
	}, record.Map())
}

func TestStandardFormWrittenPrice(t *testing.T) {
	record := StandardFormRules().Extract("The purchase price is Two Hundred Eighty Five Thousand Dollars, payable at closing.")
	price, ok := record.Get(FieldPrice)
	require.True(t, ok)
	assert.Equal(t, "Two Hundred Eighty Five Thousand Dollars", price)
}

func TestPartiesClauseIgnoresEarlierBetween(t *testing.T) {
	text := "Any dispute between the parties shall be settled by arbitration.\n" +
		`This contract is made between Robert Miles ("Seller") and Anita Patel ("Buyer").`
	record := PurchaseSaleRules().Extract(text)

	seller, _ := record.Get(FieldSellerName)
	buyer, _ := record.Get(FieldBuyerName)
	assert.Equal(t, "Robert Miles", seller)
	assert.Equal(t, "Anita Patel", buyer)
}

func TestPartiesClauseDoesNotSpanLines(t *testing.T) {
	record := PurchaseSaleRules().Extract("made between Robert\nMiles (\"Seller\") and Anita Patel (\"Buyer\")")

	seller, _ := record.Get(FieldSellerName)
	assert.Equal(t, models.NotFound, seller)
}

func TestFallbacksKeepRecordComplete(t *testing.T) {
	standard := StandardFormRules().Extract("nothing useful here")
	assert.Len(t, standard.Fields, 5)
	for _, f := range standard.Fields {
		assert.Equal(t, models.NotFound, f.Value, f.Name)
	}

	sale := PurchaseSaleRules().Extract("nothing useful here")
	assert.Len(t, sale.Fields, 5)
	dates, _ := sale.Get(FieldKeyDates)
	assert.Equal(t, NoDateFound, dates)
	seller, _ := sale.Get(FieldSellerName)
	buyer, _ := sale.Get(FieldBuyerName)
	assert.Equal(t, models.NotFound, seller)
	assert.Equal(t, models.NotFound, buyer)
}

func TestExtractionIsIdempotent(t *testing.T) {
	rules := StandardFormRules()
	first := rules.Extract(standardFormText)
	second := rules.Extract(standardFormText)
	assert.Equal(t, first, second)
}

func TestFieldRuleBlankGroupFallsBack(t *testing.T) {
	rule := FieldRule{Name: "x", Pattern: regexp.MustCompile(`value:(\s*)(\w+)?`), Group: 2}

	assert.Equal(t, []models.Field{{Name: "x", Value: "fb"}}, rule.Apply("value:   ", "fb"))
	assert.Equal(t, []models.Field{{Name: "x", Value: "42"}}, rule.Apply("value: 42", "fb"))
}

func TestRuleSetValidate(t *testing.T) {
	re := regexp.MustCompile(`(a)(b)`)
	tests := []struct {
		name string
		set  *RuleSet
	}{
		{"unrecognized type", &RuleSet{DocumentType: models.UnrecognizedDocument, Rules: []Rule{FieldRule{Name: "a", Pattern: re, Group: 1}}}},
		{"no rules", &RuleSet{DocumentType: "X"}},
		{"group out of range", &RuleSet{DocumentType: "X", Rules: []Rule{FieldRule{Name: "a", Pattern: re, Group: 3}}}},
		{"duplicate field", &RuleSet{DocumentType: "X", Rules: []Rule{
			FieldRule{Name: "a", Pattern: re, Group: 1},
			PairRule{Names: [2]string{"b", "a"}, Pattern: re, Groups: [2]int{1, 2}},
		}}},
		{"pair same names", &RuleSet{DocumentType: "X", Rules: []Rule{PairRule{Names: [2]string{"a", "a"}, Pattern: re, Groups: [2]int{1, 2}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.set.Validate())
		})
	}
	assert.NoError(t, StandardFormRules().Validate())
	assert.NoError(t, PurchaseSaleRules().Validate())
}

func TestRegistryLookup(t *testing.T) {
	registry := DefaultRegistry()
	assert.Equal(t, []models.DocumentType{models.PurchaseSaleContract, models.StandardFormContract}, registry.Types())

	e, err := registry.Lookup(models.StandardFormContract)
	require.NoError(t, err)
	assert.Equal(t, models.StandardFormContract, e.Type())

	_, err = registry.Lookup(models.UnrecognizedDocument)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Contains(t, err.Error(), models.MsgUnsupportedDocument)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(StandardFormRules(), StandardFormRules())
	assert.Error(t, err)
}

func TestRecordJSONKeepsFieldOrder(t *testing.T) {
	record := PurchaseSaleRules().Extract(purchaseSaleText)

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"propertyAddress":.*,"keyDates":.*,"buyOrOfferPrice":.*,"sellerName":.*,"buyerName":.*\}$`, string(data))
}
