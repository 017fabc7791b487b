package model

// Customer holds the directory entry plus denormalized location fields; the
// external ids reference the geographic lookup service.
type Customer struct {
	BaseModel
	Code       string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code" validate:"required"`
	Name       string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Province   string `gorm:"type:varchar(100)" json:"province"`
	ProvinceID int    `json:"province_id"`
	Regency    string `gorm:"type:varchar(100)" json:"regency"`
	RegencyID  int    `json:"regency_id"`
	District   string `gorm:"type:varchar(100)" json:"district"`
	DistrictID int    `json:"district_id"`
	Village    string `gorm:"type:varchar(100)" json:"village"`
	VillageID  int    `json:"village_id"`
	Address    string `json:"address"`
	PostalCode string `gorm:"type:varchar(10)" json:"postal_code"`

	TransactionHeaders []TransactionHeader `gorm:"foreignKey:CustomerID" json:"transaction_headers,omitempty"`
}
