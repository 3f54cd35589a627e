package servicemanager

// ServiceStatus is the systemd activity state of a unit.
type ServiceStatus string

const (
	Active   ServiceStatus = "active"
	Inactive ServiceStatus = "inactive"
	Failed   ServiceStatus = "failed"
)

// ServiceManager represents operations that can be performed on system services.
type ServiceManager interface {
	RestartService(serviceName string) error
	CheckServiceStatus(serviceName string) (ServiceStatus, error)
}
