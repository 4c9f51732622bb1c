package db

import "gorm.io/gorm"

type Repositories struct {
	Periods *PeriodRepository
	Meta    *MetaRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Periods: NewPeriodRepository(database),
		Meta:    NewMetaRepository(database),
	}
}
