package books

// Standard account names used by the posting recipes.
const (
	AccountSales           = "Sales"
	AccountPurchase        = "Purchase"
	AccountCash            = "Cash"
	AccountBank            = "Bank"
	AccountSundryDebtors   = "Sundry Debtors"
	AccountSundryCreditors = "Sundry Creditors"
)

// ChartEntry describes one account of the default chart.
type ChartEntry struct {
	Name       string     `json:"name"`
	Convention Convention `json:"convention"`
	Reserved   bool       `json:"reserved"`
}

// DefaultChart is the curated set of accounts the posting recipes rely on.
// Reserved accounts are seeded up front; anything else is created implicitly
// on first posting.
var DefaultChart = []ChartEntry{
	{Name: AccountSales, Convention: ConventionCredit, Reserved: true},
	{Name: AccountPurchase, Convention: ConventionDebit, Reserved: true},
	{Name: AccountCash, Convention: ConventionDebit, Reserved: true},
	{Name: AccountBank, Convention: ConventionDebit, Reserved: true},
	{Name: AccountSundryDebtors, Convention: ConventionDebit, Reserved: true},
	{Name: AccountSundryCreditors, Convention: ConventionCredit, Reserved: true},
}

// DefaultConvention returns the balance convention for an account created
// implicitly on first posting: the curated convention when the name is known,
// debit-normal otherwise.
func DefaultConvention(name string) Convention {
	for _, e := range DefaultChart {
		if e.Name == name {
			return e.Convention
		}
	}
	return ConventionDebit
}
