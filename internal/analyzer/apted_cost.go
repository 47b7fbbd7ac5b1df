package analyzer

import (
	"fmt"
	"math"

	"github.com/ludo-technologies/simscan/domain"
)

// CostModel defines the interface for calculating edit operation costs
type CostModel interface {
	// Insert returns the cost of inserting a node
	Insert(node *TreeNode) float64

	// Delete returns the cost of deleting a node
	Delete(node *TreeNode) float64

	// Rename returns the cost of renaming node1 to node2
	Rename(node1, node2 *TreeNode) float64
}

// APTEDOptions configures the edit costs. It is itself a CostModel.
type APTEDOptions struct {
	RenameCost float64
	DeleteCost float64
	InsertCost float64

	// CompareValues makes identifier and literal text part of node equality
	CompareValues bool
}

// DefaultAPTEDOptions returns the default edit costs
func DefaultAPTEDOptions() APTEDOptions {
	return APTEDOptions{
		RenameCost:    domain.DefaultRenameCost,
		DeleteCost:    1.0,
		InsertCost:    1.0,
		CompareValues: false,
	}
}

// Validate checks that all costs are finite and non-negative
func (o APTEDOptions) Validate() error {
	costs := []struct {
		name  string
		value float64
	}{
		{"rename_cost", o.RenameCost},
		{"delete_cost", o.DeleteCost},
		{"insert_cost", o.InsertCost},
	}
	for _, c := range costs {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			return domain.NewInvalidConfigurationError(fmt.Sprintf("%s must be a non-negative finite number, got %v", c.name, c.value))
		}
	}
	return nil
}

// Insert returns the cost of inserting a node
func (o APTEDOptions) Insert(node *TreeNode) float64 {
	return o.InsertCost
}

// Delete returns the cost of deleting a node
func (o APTEDOptions) Delete(node *TreeNode) float64 {
	return o.DeleteCost
}

// Rename returns zero for equal nodes and RenameCost otherwise
func (o APTEDOptions) Rename(node1, node2 *TreeNode) float64 {
	if node1 == nil || node2 == nil {
		return o.RenameCost
	}
	if node1.Label != node2.Label {
		return o.RenameCost
	}
	if o.CompareValues && node1.Value != node2.Value {
		return o.RenameCost
	}
	return 0.0
}

// DefaultCostModel implements a uniform cost model where all operations cost 1.0
type DefaultCostModel struct{}

// NewDefaultCostModel creates a new default cost model
func NewDefaultCostModel() *DefaultCostModel {
	return &DefaultCostModel{}
}

// Insert returns the cost of inserting a node (always 1.0)
func (c *DefaultCostModel) Insert(node *TreeNode) float64 {
	return 1.0
}

// Delete returns the cost of deleting a node (always 1.0)
func (c *DefaultCostModel) Delete(node *TreeNode) float64 {
	return 1.0
}

// Rename returns the cost of renaming node1 to node2
func (c *DefaultCostModel) Rename(node1, node2 *TreeNode) float64 {
	if node1 == nil || node2 == nil {
		return 1.0
	}
	if node1.Label == node2.Label {
		return 0.0
	}
	return 1.0
}

// WeightedCostModel scales the operations of another cost model
type WeightedCostModel struct {
	InsertWeight  float64
	DeleteWeight  float64
	RenameWeight  float64
	BaseCostModel CostModel
}

// NewWeightedCostModel creates a new weighted cost model
func NewWeightedCostModel(insertWeight, deleteWeight, renameWeight float64, baseCostModel CostModel) *WeightedCostModel {
	return &WeightedCostModel{
		InsertWeight:  insertWeight,
		DeleteWeight:  deleteWeight,
		RenameWeight:  renameWeight,
		BaseCostModel: baseCostModel,
	}
}

// Insert returns the weighted cost of inserting a node
func (c *WeightedCostModel) Insert(node *TreeNode) float64 {
	return c.InsertWeight * c.BaseCostModel.Insert(node)
}

// Delete returns the weighted cost of deleting a node
func (c *WeightedCostModel) Delete(node *TreeNode) float64 {
	return c.DeleteWeight * c.BaseCostModel.Delete(node)
}

// Rename returns the weighted cost of renaming node1 to node2
func (c *WeightedCostModel) Rename(node1, node2 *TreeNode) float64 {
	return c.RenameWeight * c.BaseCostModel.Rename(node1, node2)
}
