package memory

import (
	"testing"

	"github.com/crimson-sun/healthguard/internal/store"
	"github.com/crimson-sun/healthguard/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Repository { return New() })
}
