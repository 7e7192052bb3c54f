package costbasis

import (
	"fmt"
	"sort"

	"github.com/jbelanger/exitbook/internal/model"
)

// DisposalStrategy orders a set of open lots into the sequence a
// disposal should consume them from (spec §4.13's "strategies are pure
// given their open-lot view").
type DisposalStrategy interface {
	Method() model.CostBasisMethod
	Order(openLots []*model.AcquisitionLot) []*model.AcquisitionLot
}

type fifoStrategy struct{}

func (fifoStrategy) Method() model.CostBasisMethod { return model.CostBasisMethodFIFO }

func (fifoStrategy) Order(openLots []*model.AcquisitionLot) []*model.AcquisitionLot {
	out := append([]*model.AcquisitionLot(nil), openLots...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AcquisitionDate.Before(out[j].AcquisitionDate)
	})
	return out
}

type lifoStrategy struct{}

func (lifoStrategy) Method() model.CostBasisMethod { return model.CostBasisMethodLIFO }

func (lifoStrategy) Order(openLots []*model.AcquisitionLot) []*model.AcquisitionLot {
	out := append([]*model.AcquisitionLot(nil), openLots...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AcquisitionDate.After(out[j].AcquisitionDate)
	})
	return out
}

// StrategyFor returns the matcher strategy for a cost-basis method.
func StrategyFor(method model.CostBasisMethod) (DisposalStrategy, error) {
	switch method {
	case model.CostBasisMethodFIFO:
		return fifoStrategy{}, nil
	case model.CostBasisMethodLIFO:
		return lifoStrategy{}, nil
	default:
		return nil, fmt.Errorf("costbasis: unknown method %q", method)
	}
}
