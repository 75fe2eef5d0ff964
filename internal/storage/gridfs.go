package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps media in a MongoDB GridFS bucket named "media".
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("media"))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket}, nil
}

func (s *GridFSStore) Save(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := s.bucket.UploadFromStream(k, r, opts); err != nil {
		return fmt.Errorf("upload %s: %w", k, err)
	}
	return nil
}

func (s *GridFSStore) Open(_ context.Context, key string) (io.ReadCloser, Object, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, Object{}, err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(k)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, Object{}, ErrNotExist
	}
	if err != nil {
		return nil, Object{}, err
	}
	file := stream.GetFile()
	obj := Object{Size: file.Length, ContentType: "application/octet-stream"}
	if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok {
		obj.ContentType = ct
	}
	return stream, obj, nil
}

func (s *GridFSStore) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	cursor, err := s.bucket.Find(bson.M{"filename": k})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNotExist
	}
	for _, f := range files {
		if err := s.bucket.Delete(f.ID); err != nil {
			return err
		}
	}
	return nil
}
