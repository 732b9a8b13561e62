package domain

type FleetRepository interface {
	SaveServer(srv *ServerRecord) error
	LoadServers() ([]ServerRecord, error)
	DeleteServer(id string) error
}

type PaymentRepository interface {
	HasApproval(accountID string) (bool, error)
	SaveApproval(approval *PaymentApproval) error
}

type Repository interface {
	FleetRepository
	PaymentRepository
}
