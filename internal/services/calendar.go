package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"social-fitness-backend/internal/models"

	ics "github.com/arran4/golang-ical"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// calendarDefaultLength is used as the end of an exported event without an end time
const calendarDefaultLength = 12 * time.Hour

const floatingTimeFormat = "20060102T150405"

// ErrCalendarSharingDisabled is returned when no object store is configured
var ErrCalendarSharingDisabled = errors.New("calendar sharing is not configured")

// ObjectStore stores files and hands out temporary download links
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CalendarLink is a temporary download link for an exported calendar
type CalendarLink struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// CalendarService exports events as iCalendar files
type CalendarService struct {
	directory  *EventDirectory
	objects    ObjectStore
	presignTTL time.Duration
	now        func() time.Time
}

// NewCalendarService creates a calendar service. objects may be nil, which
// disables share links.
func NewCalendarService(directory *EventDirectory, objects ObjectStore, presignTTL time.Duration) *CalendarService {
	return &CalendarService{
		directory:  directory,
		objects:    objects,
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

// Export renders an event the viewer can see as a single-event calendar
func (s *CalendarService) Export(ctx context.Context, eventID, viewerID string) ([]byte, error) {
	event, err := s.directory.GetEvent(ctx, eventID, viewerID)
	if err != nil {
		return nil, err
	}
	return RenderCalendar(event, s.now()), nil
}

// ShareLink uploads the exported calendar and returns a presigned link to it
func (s *CalendarService) ShareLink(ctx context.Context, eventID, viewerID string) (*CalendarLink, error) {
	if s.objects == nil {
		return nil, ErrCalendarSharingDisabled
	}

	body, err := s.Export(ctx, eventID, viewerID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("calendars/%s.ics", eventID)
	if err := s.objects.Put(ctx, key, "text/calendar; charset=utf-8", body); err != nil {
		return nil, fmt.Errorf("failed to upload calendar: %w", err)
	}

	url, err := s.objects.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign calendar link: %w", err)
	}

	return &CalendarLink{
		URL:       url,
		ExpiresIn: int(s.presignTTL.Seconds()),
	}, nil
}

// RenderCalendar builds the iCalendar document for an event. Start and end
// are written as floating wall-clock times taken verbatim from the stored values.
func RenderCalendar(event *models.Event, stamp time.Time) []byte {
	end := event.StartTime.Add(calendarDefaultLength)
	if event.EndTime != nil {
		end = *event.EndTime
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//social-fitness//events//EN")

	vevent := cal.AddEvent(event.ID)
	vevent.SetDtStampTime(stamp)
	vevent.SetProperty(ics.ComponentPropertyDtStart, event.StartTime.Format(floatingTimeFormat))
	vevent.SetProperty(ics.ComponentPropertyDtEnd, end.Format(floatingTimeFormat))
	vevent.SetSummary(event.Title)
	vevent.SetDescription(deref(event.Description))
	vevent.SetLocation(deref(event.LocationName))
	vevent.SetProperty(ics.ComponentPropertyGeo, fmt.Sprintf("%f;%f", event.Latitude, event.Longitude))

	var buf bytes.Buffer
	buf.WriteString(cal.Serialize())
	return buf.Bytes()
}

// S3ObjectStore is an ObjectStore backed by an S3 bucket
type S3ObjectStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3ObjectStore creates an S3 object store. Static credentials and a custom
// endpoint are optional; the default credential chain is used otherwise.
func NewS3ObjectStore(ctx context.Context, region, bucket, accessKey, secretKey, endpoint string) (*S3ObjectStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3ObjectStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

// Put uploads an object
func (s *S3ObjectStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// PresignGet returns a temporary GET link for an object
func (s *S3ObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}
	return request.URL, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
