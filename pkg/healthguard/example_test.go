package healthguard_test

import (
	"context"
	"fmt"
	"log"

	"github.com/crimson-sun/healthguard/pkg/healthguard"
)

func Example() {
	hg := healthguard.New()
	defer hg.Close()
	ctx := context.Background()

	inc, err := hg.Ingest(ctx, healthguard.RawEvent{
		Module:   "FI",
		Severity: healthguard.SeverityError,
		Message:  "BAPI_ACC_DOCUMENT_POST failed: Lock timeout on table BSEG",
	})
	if err != nil {
		log.Fatal(err)
	}

	out, err := hg.Analyze(ctx, inc.ID, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(out.Analysis.Classification)
	fmt.Println(out.Risk.Level)
	fmt.Println(out.Decision)
	fmt.Printf("audit records: %d, chain ok: %v\n", len(hg.AuditRecords(inc.ID)), hg.VerifyAudit().OK)
	// Output:
	// FI ERROR
	// LOW
	// ESCALATE_TO_HUMAN
	// audit records: 5, chain ok: true
}
