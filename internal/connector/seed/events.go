package seed

import "github.com/crimson-sun/healthguard/internal/model"

// templates are the built-in SAP sandbox events. Timestamps are assigned
// relative to the connector clock when the events are served.
var templates = []model.RawEvent{
	// Month-end cluster in finance.
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "FI",
		Severity:       model.SeverityError,
		Message:        "BAPI_ACC_DOCUMENT_POST failed: Lock timeout on table BSEG during month-end closing batch",
		MonthEnd:       true,
		ChangedObjects: []string{"BSEG", "BKPF", "GLT0"},
		RecentDeploys:  []string{"FI-GL-2024.01.15", "BASIS-PATCH-001"},
	},
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "FI",
		Severity:       model.SeverityError,
		Message:        "Transaction FB50: Posting period 01/2026 is not open for company code 1000",
		MonthEnd:       true,
		ChangedObjects: []string{"T001B", "BKPF"},
		RecentDeploys:  []string{},
	},
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "FI",
		Severity:       model.SeverityWarning,
		Message:        "High database load detected during FI-GL reconciliation: Response time > 5s",
		MonthEnd:       true,
		ChangedObjects: []string{"FAGLFLEXA", "ACDOCA"},
		RecentDeploys:  []string{"FI-GL-2024.01.15"},
	},
	{
		SourceSystem:   "SAP-PROD-02",
		Application:    "S/4HANA",
		Module:         "CO",
		Severity:       model.SeverityError,
		Message:        "Cost center allocation cycle KSUB failed: Sender/receiver imbalance detected",
		MonthEnd:       true,
		ChangedObjects: []string{"COSS", "COSP", "COKA"},
		RecentDeploys:  []string{},
	},
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "FI",
		Severity:       model.SeverityError,
		Message:        "Asset depreciation run AFAB terminated: Missing useful life for asset 1000-00001234",
		MonthEnd:       true,
		ChangedObjects: []string{"ANLC", "ANLP", "ANEK"},
		RecentDeploys:  []string{"FI-AA-2024.01.10"},
	},

	// Repeated goods receipt failures.
	{
		SourceSystem:   "SAP-PROD-02",
		Application:    "S/4HANA",
		Module:         "MM",
		Severity:       model.SeverityError,
		Message:        "MIGO goods receipt 4900012345: Movement type 101 not allowed for material type HAWA",
		ChangedObjects: []string{"MSEG", "MKPF", "MARD"},
		RecentDeploys:  []string{"MM-IM-2024.01.08"},
	},
	{
		SourceSystem:   "SAP-PROD-02",
		Application:    "S/4HANA",
		Module:         "MM",
		Severity:       model.SeverityError,
		Message:        "MIGO goods receipt 4900012346: Movement type 101 not allowed for material type HAWA",
		ChangedObjects: []string{"MSEG", "MKPF", "MARD"},
		RecentDeploys:  []string{"MM-IM-2024.01.08"},
	},
	{
		SourceSystem:   "SAP-PROD-02",
		Application:    "S/4HANA",
		Module:         "MM",
		Severity:       model.SeverityError,
		Message:        "MIGO goods receipt 4900012347: Movement type 101 not allowed for material type HAWA",
		ChangedObjects: []string{"MSEG", "MKPF", "MARD"},
		RecentDeploys:  []string{"MM-IM-2024.01.08"},
	},

	// Sales and distribution.
	{
		SourceSystem:   "SAP-PROD-03",
		Application:    "S/4HANA",
		Module:         "SD",
		Severity:       model.SeverityError,
		Message:        "Sales order 0010012345: Pricing procedure RVAA01 not found for sales org 1000",
		ChangedObjects: []string{"VBAK", "VBAP", "KONV"},
		RecentDeploys:  []string{"SD-PRICING-2024.01.12"},
	},
	{
		SourceSystem:   "SAP-PROD-03",
		Application:    "S/4HANA",
		Module:         "SD",
		Severity:       model.SeverityWarning,
		Message:        "ATP check timeout for material MAT-001: BW extraction running in parallel",
		ChangedObjects: []string{"MARD", "RESB"},
		RecentDeploys:  []string{},
	},

	// Production planning.
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "PP",
		Severity:       model.SeverityError,
		Message:        "Production order 1000012345 confirmation failed: Operation 0010 already confirmed",
		ChangedObjects: []string{"AFKO", "AFPO", "AFRU"},
		RecentDeploys:  []string{},
	},
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "PP",
		Severity:       model.SeverityWarning,
		Message:        "MRP run NEUPL: 15000 exception messages generated for plant 1000",
		ChangedObjects: []string{"PLAF", "MDKP", "MDTB"},
		RecentDeploys:  []string{"PP-MRP-2024.01.05"},
	},

	// HCM.
	{
		SourceSystem:   "SAP-HCM-01",
		Application:    "SAP HCM",
		Module:         "HR",
		Severity:       model.SeverityError,
		Message:        "Payroll run for area 01: Tax calculation error for employee 00001234",
		MonthEnd:       true,
		ChangedObjects: []string{"PA0001", "PA0008", "RGDIR"},
		RecentDeploys:  []string{"HR-PY-2024.01.01"},
	},
	{
		SourceSystem:   "SAP-HCM-01",
		Application:    "SAP HCM",
		Module:         "HR",
		Severity:       model.SeverityWarning,
		Message:        "Time evaluation RPTIME00: 250 employees with missing clock-in records",
		ChangedObjects: []string{"PA2001", "PA2002", "TEVEN"},
		RecentDeploys:  []string{},
	},

	// Basis.
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "BASIS",
		Severity:       model.SeverityWarning,
		Message:        "Background job RSUSR003 exceeded runtime threshold: 45 minutes",
		ChangedObjects: []string{},
		RecentDeploys:  []string{"BASIS-SECURITY-2024.01.03"},
	},
	{
		SourceSystem:   "SAP-PROD-01",
		Application:    "S/4HANA",
		Module:         "BASIS",
		Severity:       model.SeverityInfo,
		Message:        "Transport DEVK900123 imported successfully to production",
		ChangedObjects: []string{"E070", "E071"},
		RecentDeploys:  []string{"CUSTOM-DEV-001"},
	},

	// Integration.
	{
		SourceSystem:   "SAP-PI-01",
		Application:    "SAP PI/PO",
		Module:         "XI",
		Severity:       model.SeverityError,
		Message:        "IDOC ORDERS05 to external system: Connection timeout after 30s",
		ChangedObjects: []string{"EDIDC", "EDIDS"},
		RecentDeploys:  []string{},
	},
	{
		SourceSystem:   "SAP-BTP-01",
		Application:    "SAP BTP",
		Module:         "CPI",
		Severity:       model.SeverityError,
		Message:        "iFlow SalesOrder_Replication: OAuth token refresh failed for destination S4HANA_PROD",
		ChangedObjects: []string{},
		RecentDeploys:  []string{"CPI-FLOW-2024.01.14"},
	},
}
