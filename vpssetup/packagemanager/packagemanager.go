package packagemanager

// PackageManager covers the package operations the bootstrap performs.
type PackageManager interface {
	// Refreshes the package index
	UpdateCache() error

	// Upgrades every installed package
	UpgradeAll() error

	// Installs a single package
	Install(pkg string) error
}
