package initializers

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Firebase holds the clients built from one app. Messaging and Bucket are nil
// when push or media uploads are not configured.
type Firebase struct {
	Firestore  *firestore.Client
	Messaging  *messaging.Client
	Bucket     *gcs.BucketHandle
	BucketName string
}

func InitFirebase(ctx context.Context, cfg *Config, log logrus.FieldLogger) (*Firebase, error) {
	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" || cfg.FirebaseStorageBucket != "" {
		fbConfig = &firebase.Config{
			ProjectID:     cfg.FirebaseProjectID,
			StorageBucket: cfg.FirebaseStorageBucket,
		}
	}

	var opts []option.ClientOption
	if cfg.FirebaseServiceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseServiceAccountPath))
		log.Info("Firebase initialized with service account file")
	} else {
		log.Info("Firebase initialized with Application Default Credentials")
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	fb := &Firebase{}
	fb.Firestore, err = app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}

	if cfg.PushEnabled {
		fb.Messaging, err = app.Messaging(ctx)
		if err != nil {
			fb.Close()
			return nil, fmt.Errorf("failed to get Firebase messaging client: %w", err)
		}
	}

	if cfg.FirebaseStorageBucket != "" {
		storageClient, err := app.Storage(ctx)
		if err != nil {
			fb.Close()
			return nil, fmt.Errorf("failed to get Firebase storage client: %w", err)
		}
		fb.Bucket, err = storageClient.DefaultBucket()
		if err != nil {
			fb.Close()
			return nil, fmt.Errorf("failed to open storage bucket %s: %w", cfg.FirebaseStorageBucket, err)
		}
		fb.BucketName = cfg.FirebaseStorageBucket
	}

	return fb, nil
}

func (f *Firebase) Close() {
	if f.Firestore != nil {
		f.Firestore.Close()
	}
}
