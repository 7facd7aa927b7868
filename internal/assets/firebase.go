package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// FirebaseUploader stores assets in a Firebase Storage bucket.
type FirebaseUploader struct {
	client *storage.Client
	bucket string
}

// NewFirebaseUploader prefers base64-encoded service account JSON and falls
// back to a credentials file on disk.
func NewFirebaseUploader(ctx context.Context, bucket, encodedCreds, credentialsFile string) (*FirebaseUploader, error) {
	var opt option.ClientOption

	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %v", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("Asset storage: initializing Firebase from FIREBASE_SERVICE_ACCOUNT_JSON.")
	} else {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("firebase credentials file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON is not set", credentialsFile)
		}
		opt = option.WithCredentialsFile(credentialsFile)
		log.Printf("Asset storage: initializing Firebase from local file: %s.", credentialsFile)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting storage client: %v", err)
	}

	return &FirebaseUploader{client: client, bucket: bucket}, nil
}

func (u *FirebaseUploader) Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (string, error) {
	name, err := ObjectName(kind, filename)
	if err != nil {
		return "", err
	}
	object := string(kind) + "/" + name

	bucket, err := u.client.DefaultBucket()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	w := bucket.Object(object).NewWriter(ctx)
	w.ContentType = mime.TypeByExtension(filepath.Ext(name))

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, object), nil
}
