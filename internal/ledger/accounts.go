package ledger

import "strings"

// Category is the top level of the account taxonomy.
type Category string

const (
	CategoryRevenue Category = "Revenue"
	CategoryCOGS    Category = "COGS"
	CategoryOpex    Category = "Opex"
	CategoryOther   Category = "Other"
)

// Standard accounts of the quick-service restaurant chart.
const (
	AccountRevenueFood     = "Revenue:Food"
	AccountRevenueBeverage = "Revenue:Beverage"
	AccountCOGSFood        = "COGS:Food"
	AccountCOGSPaper       = "COGS:Paper"
	AccountLabor           = "Opex:Labor"
	AccountPayrollTaxes    = "Opex:PayrollTaxes"
	AccountBenefits        = "Opex:Benefits"
	AccountRent            = "Opex:Rent"
	AccountUtilities       = "Opex:Utilities"
	AccountRoyalty         = "Opex:Royalty"
	AccountAdFund          = "Opex:AdFund"
	AccountRepairs         = "Opex:R&M"
	AccountSupplies        = "Opex:Supplies"
	AccountInsurance       = "Opex:Insurance"
	AccountDepreciation    = "Opex:Depreciation"
)

// Accounts lists the chart of accounts in reporting order.
var Accounts = []string{
	AccountRevenueFood, AccountRevenueBeverage,
	AccountCOGSFood, AccountCOGSPaper,
	AccountLabor, AccountPayrollTaxes, AccountBenefits,
	AccountRent, AccountUtilities, AccountRoyalty, AccountAdFund,
	AccountRepairs, AccountSupplies, AccountInsurance,
	AccountDepreciation,
}

// PayrollAccounts are the accounts produced by roster expansion.
var PayrollAccounts = []string{AccountLabor, AccountPayrollTaxes, AccountBenefits}

// IsPayroll reports whether account is generated from the roster.
func IsPayroll(account string) bool {
	for _, a := range PayrollAccounts {
		if a == account {
			return true
		}
	}
	return false
}

// CategoryOf classifies an account by its prefix.
func CategoryOf(account string) Category {
	switch {
	case strings.HasPrefix(account, string(CategoryRevenue)):
		return CategoryRevenue
	case strings.HasPrefix(account, string(CategoryCOGS)):
		return CategoryCOGS
	case strings.HasPrefix(account, string(CategoryOpex)):
		return CategoryOpex
	default:
		return CategoryOther
	}
}

// IsRevenue reports whether account is a revenue account.
func IsRevenue(account string) bool {
	return CategoryOf(account) == CategoryRevenue
}

// Departments.
const (
	DeptSales = "Sales"
	DeptOps   = "Ops"
	DeptHQ    = "HQ"
)

// Departments lists the known departments.
var Departments = []string{DeptSales, DeptOps, DeptHQ}

var deptParent = map[string]string{
	DeptSales: DeptHQ,
	DeptOps:   DeptHQ,
	DeptHQ:    "",
}

// ValidDept reports whether dept is a known department.
func ValidDept(dept string) bool {
	_, ok := deptParent[dept]
	return ok
}

// Children returns the direct children of a department in the tree, in
// declaration order.
func Children(member string) []string {
	children := []string{}
	for _, d := range Departments {
		if parent := deptParent[d]; parent != "" && parent == member {
			children = append(children, d)
		}
	}
	return children
}
