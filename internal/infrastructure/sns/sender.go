package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-api-otp/internal/domain"
)

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher hands delivery jobs to an external mail worker through an SNS topic.
type Publisher struct {
	client   publishAPI
	topicARN string
}

func NewPublisher(awsCfg aws.Config, topicARN string) (*Publisher, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("sns delivery topic ARN is not configured")
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}, nil
}

// Enqueue publishes job as a JSON message. The recipient is also set as a
// message attribute so subscribers can filter without parsing the body.
func (p *Publisher) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal delivery job: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String(job.Subject),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"to": {DataType: aws.String("String"), StringValue: aws.String(job.To)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish delivery job: %w", err)
	}
	return nil
}
