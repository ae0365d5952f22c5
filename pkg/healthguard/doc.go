// Package healthguard provides an embeddable SAP incident triage service:
// raw events are normalized into incidents, analyzed against similar past
// incidents, risk-scored and either given a remediation playbook or escalated
// to a human. Every stage is recorded in a hash-chained audit trail.
//
// Quick start:
//
//	hg := healthguard.New(healthguard.WithLogger(logger))
//	defer hg.Close()
//
//	inc, _ := hg.Ingest(ctx, healthguard.RawEvent{
//	    Module:   "FI",
//	    Severity: healthguard.SeverityError,
//	    Message:  "BAPI_ACC_DOCUMENT_POST failed: Lock timeout on table BSEG",
//	})
//	out, _ := hg.Analyze(ctx, inc.ID, nil)
//	fmt.Println(out.Decision) // ESCALATE_TO_HUMAN
//
// Without a Generator, classification and playbooks come from deterministic
// fallbacks. The HealthGuard instance is safe for concurrent use.
package healthguard
