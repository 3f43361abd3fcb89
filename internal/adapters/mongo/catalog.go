package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Silicom-11/synaplink-engine/internal/observability"
)

// VenueCatalog stores the cybercafé metadata shown next to the cabin
// grid: address, hardware specs, facilities, and the cabin inventory
// the registry is provisioned from.
type VenueCatalog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewVenueCatalog(db *mongo.Database, logger observability.Logger) *VenueCatalog {
	return &VenueCatalog{
		coll:   db.Collection("venues"),
		logger: logger,
	}
}

type VenueDoc struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Address      string    `bson:"address" json:"address"`
	Description  string    `bson:"description" json:"description"`
	Specs        []string  `bson:"specs" json:"specs"`
	Facilities   []string  `bson:"facilities" json:"facilities"`
	CabinNumbers []int     `bson:"cabin_numbers" json:"cabinNumbers"`
	CreatedAt    time.Time `bson:"created_at" json:"-"`
	UpdatedAt    time.Time `bson:"updated_at" json:"-"`
}

func (c *VenueCatalog) GetVenue(ctx context.Context, id string) (*VenueDoc, error) {
	var venue VenueDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&venue)
	if err != nil {
		c.logger.WithError(err).WithField("venue_id", id).Error("failed to get venue")
		return nil, err
	}
	return &venue, nil
}

func (c *VenueCatalog) ListVenues(ctx context.Context) ([]VenueDoc, error) {
	cur, err := c.coll.Find(ctx, bson.M{})
	if err != nil {
		c.logger.WithError(err).Error("failed to list venues")
		return nil, err
	}
	defer cur.Close(ctx)

	var venues []VenueDoc
	if err := cur.All(ctx, &venues); err != nil {
		return nil, err
	}
	return venues, nil
}

func (c *VenueCatalog) UpsertVenue(ctx context.Context, venue VenueDoc) error {
	now := time.Now()
	_, err := c.coll.UpdateOne(
		ctx,
		bson.M{"_id": venue.ID},
		bson.M{
			"$set": bson.M{
				"name":          venue.Name,
				"address":       venue.Address,
				"description":   venue.Description,
				"specs":         venue.Specs,
				"facilities":    venue.Facilities,
				"cabin_numbers": venue.CabinNumbers,
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		c.logger.WithError(err).WithField("venue_id", venue.ID).Error("failed to upsert venue")
		return err
	}
	return nil
}

// VenueName implements history.VenueNamer.
func (c *VenueCatalog) VenueName(ctx context.Context, venueID string) (string, error) {
	venue, err := c.GetVenue(ctx, venueID)
	if err != nil {
		return "", err
	}
	return venue.Name, nil
}
