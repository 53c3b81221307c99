package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

// Inventory implements shutdown.Inventory on top of EC2.
type Inventory struct {
	client EC2API
}

// NewInventory creates an inventory backed by client.
func NewInventory(client EC2API) *Inventory {
	return &Inventory{client: client}
}

// DescribeRunning returns the instances matching filter across all pages,
// in the order EC2 returns them.
func (i *Inventory) DescribeRunning(ctx context.Context, filter shutdown.Filter) ([]shutdown.Instance, error) {
	var instances []shutdown.Instance
	var nextToken *string

	filters := buildFilters(filter)
	for {
		output, err := i.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters:   filters,
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				instances = append(instances, convertInstance(instance))
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return instances, nil
}

// Stop issues a single StopInstances call. The per-instance outcome is not inspected.
func (i *Inventory) Stop(ctx context.Context, instanceIDs []string) error {
	if len(instanceIDs) == 0 {
		return nil
	}

	output, err := i.client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: instanceIDs})
	if err != nil {
		return fmt.Errorf("stop instances: %w", err)
	}

	if output != nil {
		log.Debug().Int("requested", len(instanceIDs)).Int("stopping", len(output.StoppingInstances)).Msg("stop requested")
	}
	return nil
}

func buildFilters(filter shutdown.Filter) []ec2types.Filter {
	filters := make([]ec2types.Filter, 0, len(filter.Tags)+1)
	if filter.State != "" {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("instance-state-name"),
			Values: []string{filter.State},
		})
	}
	for _, tag := range filter.Tags {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:" + tag.Key),
			Values: []string{tag.Value},
		})
	}
	return filters
}

func convertInstance(instance ec2types.Instance) shutdown.Instance {
	inst := shutdown.Instance{
		ID:   aws.ToString(instance.InstanceId),
		Tags: make([]shutdown.Tag, 0, len(instance.Tags)),
	}
	if instance.State != nil {
		inst.State = string(instance.State.Name)
	}
	for _, tag := range instance.Tags {
		inst.Tags = append(inst.Tags, shutdown.Tag{Key: tag.Key, Value: tag.Value})
	}
	return inst
}
