package fixtures

import (
	"fmt"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
)

var (
	TestTypeMedical = model.BottleType{
		ID:             1,
		Name:           "medical-40l",
		CapacityLiters: 40,
		FillWeightG:    6_000,
		PricePerFill:   150_000,
		DepositAmount:  500_000,
	}

	TestTypeIndustrial = model.BottleType{
		ID:             2,
		Name:           "industrial-50l",
		CapacityLiters: 50,
		FillWeightG:    7_500,
		PricePerFill:   120_000,
	}

	TestCustomerClinic = model.Customer{
		ID:    1,
		Name:  "Shafa Clinic",
		Phone: "0912100001",
	}

	TestCustomerWorkshop = model.Customer{
		ID:    2,
		Name:  "Karoon Welding",
		Phone: "0912100002",
	}

	TestSupplierBulk = model.Supplier{
		ID:    1,
		Name:  "Pars Gas Co",
		Phone: "0913100001",
	}
)

func NewTestBottle(serial string, typeID int64, status model.BottleStatus) *model.Bottle {
	return &model.Bottle{
		Serial:    serial,
		TypeID:    typeID,
		Status:    status,
		Location:  model.LocationCenter,
		CreatedAt: time.Now(),
	}
}

func NewTestBottles(n int, typeID int64, status model.BottleStatus) []*model.Bottle {
	bottles := make([]*model.Bottle, 0, n)
	for i := 0; i < n; i++ {
		bottles = append(bottles, NewTestBottle(fmt.Sprintf("CYL-%03d", i+1), typeID, status))
	}
	return bottles
}

func NewTestTank(capacityG, levelG int64) *model.Tank {
	return &model.Tank{
		ID:                 1,
		CapacityG:          capacityG,
		LevelG:             levelG,
		LowThresholdG:      capacityG / 5,
		CriticalThresholdG: capacityG / 20,
		UpdatedAt:          time.Now(),
	}
}

func NewTestIssueRequest(customerID int64, bottleIDs []int64, total, paid int64) model.IssueRequest {
	return model.IssueRequest{
		CustomerID:  customerID,
		BottleIDs:   bottleIDs,
		TotalAmount: total,
		AmountPaid:  paid,
	}
}

func NewTestDelivery(supplierID, weightG, pricePerKg, paid int64) model.SupplierDeliveryRequest {
	return model.SupplierDeliveryRequest{
		SupplierID: supplierID,
		WeightG:    weightG,
		PricePerKg: pricePerKg,
		AmountPaid: paid,
	}
}

func NewTestTankAlert(id string, severity model.AlertSeverity, levelG, capacityG int64) *model.TankAlert {
	return &model.TankAlert{
		ID:        id,
		Severity:  severity,
		LevelG:    levelG,
		CapacityG: capacityG,
		Percent:   float64(levelG) / float64(capacityG) * 100,
		CreatedAt: time.Now(),
	}
}
