package model

// ModuleNode describes one application module known to the catalogue.
type ModuleNode struct {
	Code     string
	Name     string
	Keywords []string // extra tags attached to incidents of this module
}
