package taxonomy

import "github.com/crimson-sun/healthguard/internal/model"

// DefaultModules returns the built-in SAP module catalogue.
func DefaultModules() []*model.ModuleNode {
	return []*model.ModuleNode{
		{Code: "FI", Name: "Financial Accounting", Keywords: []string{"finance", "posting"}},
		{Code: "CO", Name: "Controlling", Keywords: []string{"cost-center", "settlement"}},
		{Code: "MM", Name: "Materials Management", Keywords: []string{"inventory", "procurement"}},
		{Code: "SD", Name: "Sales and Distribution", Keywords: []string{"billing", "sales"}},
		{Code: "PP", Name: "Production Planning", Keywords: []string{"mrp", "production"}},
		{Code: "HR", Name: "Human Resources", Keywords: []string{"payroll", "personnel"}},
		{Code: "BASIS", Name: "Basis/System Administration", Keywords: []string{"infrastructure", "system"}},
	}
}
