package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateClient_ProvisionsIdentity(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		birth    time.Time
		password string
	}{
		{"birthday passed", date(1998, time.March, 10), "2600"},
		{"birthday ahead", date(1998, time.July, 1), "2500"},
		{"birthday today", date(1998, time.June, 15), "2600"},
		{"single digit age", date(2019, time.January, 1), "0500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			client, user, err := f.clients.CreateClient(ctx, clientInput("Ana Lopez", "Ana.Lopez@example.com", "555-0001", tc.birth))
			require.NoError(t, err)

			require.Equal(t, "ana.lopez", user.Username)
			require.Equal(t, domain.RoleClient, user.Role)
			require.Equal(t, "Ana", user.FirstName)
			require.Equal(t, "Lopez", user.LastName)
			require.NotNil(t, client.UserID)
			require.Equal(t, user.ID, *client.UserID)

			stored := f.store.users[user.ID]
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(tc.password)))
			require.Equal(t, f.store.clients[client.ID].UserID, &user.ID)
		})
	}
}

func TestCreateClient_UsernameSuffixes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	want := []string{"maria", "maria1", "maria2", "maria3"}
	for i, domainPart := range []string{"a.com", "b.com", "c.com", "d.com"} {
		phone := "555-010" + string(rune('0'+i))
		_, user, err := f.clients.CreateClient(ctx, clientInput("Maria", "maria@"+domainPart, phone, date(1990, time.May, 5)))
		require.NoError(t, err)
		require.Equal(t, want[i], user.Username)
	}
}

func TestCreateClient_SuffixSkipsStaffUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := memUsers{f.store}.Create(ctx, &domain.User{Username: "coach", Email: "coach@gym.test", PasswordHash: "x", Role: domain.RoleTrainer})
	require.NoError(t, err)

	_, user, err := f.clients.CreateClient(ctx, clientInput("Coach Client", "coach@mail.test", "555-0200", date(1985, time.January, 20)))
	require.NoError(t, err)
	require.Equal(t, "coach1", user.Username)
}

func TestCreateClient_DuplicateEmailIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, _, err := f.clients.CreateClient(ctx, clientInput("First", "same@example.com", "555-0301", date(1990, time.May, 5)))
	require.NoError(t, err)

	_, _, err = f.clients.CreateClient(ctx, clientInput("Second", "same@example.com", "555-0302", date(1991, time.May, 5)))
	require.ErrorIs(t, err, ErrClientExists)
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "email")

	require.Len(t, f.store.clients, 1)
	require.Len(t, f.store.users, 1)
}

func TestCreateClient_IdentityFailureRollsBackClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	// A staff identity already owns the email the client identity would use.
	_, err := memUsers{f.store}.Create(ctx, &domain.User{Username: "front", Email: "taken@example.com", PasswordHash: "x", Role: domain.RoleOwner})
	require.NoError(t, err)

	_, _, err = f.clients.CreateClient(ctx, clientInput("Taken", "taken@example.com", "555-0400", date(1990, time.May, 5)))
	require.ErrorIs(t, err, ErrIdentityExists)
	require.Empty(t, f.store.clients)
	require.Len(t, f.store.users, 1)
}

func TestCreateClient_RetriesUsernameRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.failUserCreate = &repository.DuplicateKeyError{Field: "username"}

	client, user, err := f.clients.CreateClient(ctx, clientInput("Race", "race@example.com", "555-0500", date(1990, time.May, 5)))
	require.NoError(t, err)
	require.Equal(t, 2, f.store.txCount)
	require.Len(t, f.store.clients, 1)
	require.Equal(t, user.ID, *client.UserID)
}

func TestCreateClient_ExistingIdentityForcesRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	staff := &domain.User{Username: "trainer.tom", Email: "tom@gym.test", PasswordHash: "x", Role: domain.RoleTrainer}
	_, err := memUsers{f.store}.Create(ctx, staff)
	require.NoError(t, err)

	in := clientInput("Tom", "tom@example.com", "555-0600", date(1980, time.February, 2))
	in.UserID = &staff.ID
	client, user, err := f.clients.CreateClient(ctx, in)
	require.NoError(t, err)

	require.Equal(t, staff.ID, user.ID)
	require.Equal(t, domain.RoleClient, f.store.users[staff.ID].Role)
	require.Len(t, f.store.users, 1)
	require.Equal(t, staff.ID, *f.store.clients[client.ID].UserID)

	creds, err := f.clients.Credentials(ctx, client.ID)
	require.NoError(t, err)
	require.Empty(t, creds.DefaultPassword)
}

func TestCreateClient_UnknownIdentity(t *testing.T) {
	f := newFixture()
	missing := primitive.NewObjectID()
	in := clientInput("Ghost", "ghost@example.com", "555-0700", date(1980, time.February, 2))
	in.UserID = &missing

	_, _, err := f.clients.CreateClient(context.Background(), in)
	require.ErrorIs(t, err, ErrIdentityNotFound)
	require.Empty(t, f.store.clients)
}

func TestCreateClient_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bad := []func(in *ClientInput){
		func(in *ClientInput) { in.Name = " " },
		func(in *ClientInput) { in.Email = "no-at-sign" },
		func(in *ClientInput) { in.Email = "@example.com" },
		func(in *ClientInput) { in.BirthDate = fixedNow.AddDate(0, 0, 2) },
		func(in *ClientInput) { in.Weight = 0 },
		func(in *ClientInput) { in.SubscriptionType = "gold" },
		func(in *ClientInput) {
			start, end := date(2024, time.May, 1), date(2024, time.April, 1)
			in.SubscriptionStart, in.SubscriptionEnd = &start, &end
		},
	}
	for i, mutate := range bad {
		in := clientInput("Valid", "valid@example.com", "555-0800", date(1990, time.May, 5))
		mutate(&in)
		_, _, err := f.clients.CreateClient(ctx, in)
		require.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
	require.Empty(t, f.store.clients)
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	client, _, err := f.clients.CreateClient(ctx, clientInput("Luis Perez", "luis@example.com", "555-0900", date(1998, time.March, 10)))
	require.NoError(t, err)

	creds, err := f.clients.Credentials(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, "luis", creds.Username)
	require.Equal(t, "2600", creds.DefaultPassword)
	require.Equal(t, 26, creds.Age)
	require.Equal(t, "Luis Perez", creds.ClientName)

	// The default password stays fixed after the next birthday.
	f.clients.now = func() time.Time { return date(2025, time.April, 1) }
	creds, err = f.clients.Credentials(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, 27, creds.Age)
	require.Equal(t, "2600", creds.DefaultPassword)

	unlinked := &domain.Client{Name: "Walk In", Email: "walkin@example.com", Phone: "555-0901", BirthDate: date(1990, time.May, 5)}
	_, err = memClients{f.store}.Create(ctx, unlinked)
	require.NoError(t, err)
	_, err = f.clients.Credentials(ctx, unlinked.ID)
	require.ErrorIs(t, err, ErrNoLinkedIdentity)

	all, err := f.clients.AllCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, client.ID, all[0].ClientID)

	_, err = f.clients.Credentials(ctx, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestEnsureIdentity_Backfill(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	unlinked := &domain.Client{Name: "Walk In", Email: "walkin@example.com", Phone: "555-1000", BirthDate: date(2000, time.January, 1)}
	_, err := memClients{f.store}.Create(ctx, unlinked)
	require.NoError(t, err)

	user, err := f.clients.EnsureIdentity(ctx, unlinked.ID)
	require.NoError(t, err)
	require.Equal(t, "walkin", user.Username)
	require.Equal(t, user.ID, *f.store.clients[unlinked.ID].UserID)

	again, err := f.clients.EnsureIdentity(ctx, unlinked.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)
	require.Len(t, f.store.users, 1)
}

func TestListClients_AgeFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	births := map[string]time.Time{
		"a-twenty":     date(2004, time.June, 15), // 20 today
		"b-twentynine": date(1994, time.June, 16), // 29, turns 30 tomorrow
		"c-thirty":     date(1994, time.June, 15), // 30 today
		"d-forty":      date(1984, time.January, 1),
	}
	i := 0
	for name, birth := range births {
		i++
		_, _, err := f.clients.CreateClient(ctx, clientInput(name, name+"@example.com", "555-11"+string(rune('0'+i)), birth))
		require.NoError(t, err)
	}

	lo, hi := 20, 29
	got, err := f.clients.ListClients(ctx, ClientQuery{MinAge: &lo, MaxAge: &hi})
	require.NoError(t, err)
	require.Equal(t, []string{"a-twenty", "b-twentynine"}, clientNames(got))

	lo = 30
	got, err = f.clients.ListClients(ctx, ClientQuery{MinAge: &lo})
	require.NoError(t, err)
	require.Equal(t, []string{"c-thirty", "d-forty"}, clientNames(got))

	lo, hi = 40, 30
	_, err = f.clients.ListClients(ctx, ClientQuery{MinAge: &lo, MaxAge: &hi})
	require.ErrorIs(t, err, ErrValidation)
}

func clientNames(clients []domain.Client) []string {
	names := make([]string, len(clients))
	for i, c := range clients {
		names[i] = c.Name
	}
	return names
}

func TestUpdateClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	client, user, err := f.clients.CreateClient(ctx, clientInput("Eva", "eva@example.com", "555-1200", date(1990, time.May, 5)))
	require.NoError(t, err)
	_, _, err = f.clients.CreateClient(ctx, clientInput("Other", "other@example.com", "555-1201", date(1990, time.May, 5)))
	require.NoError(t, err)

	in := clientInput("Eva Maria", "eva@example.com", "555-1299", date(1990, time.May, 5))
	in.Weight = 64.5
	updated, err := f.clients.UpdateClient(ctx, client.ID, in)
	require.NoError(t, err)
	require.Equal(t, "Eva Maria", updated.Name)
	require.Equal(t, 64.5, f.store.clients[client.ID].Weight)
	require.Equal(t, user.ID, *f.store.clients[client.ID].UserID)
	require.Equal(t, client.JoinDate, updated.JoinDate)

	in.Phone = "555-1201"
	_, err = f.clients.UpdateClient(ctx, client.ID, in)
	require.ErrorIs(t, err, ErrClientExists)
	require.Equal(t, "555-1299", f.store.clients[client.ID].Phone)

	_, err = f.clients.UpdateClient(ctx, primitive.NewObjectID(), in)
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestDeleteClient_Cascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	client, user, err := f.clients.CreateClient(ctx, clientInput("Gone", "gone@example.com", "555-1300", date(1990, time.May, 5)))
	require.NoError(t, err)
	keep, _, err := f.clients.CreateClient(ctx, clientInput("Kept", "kept@example.com", "555-1301", date(1990, time.May, 5)))
	require.NoError(t, err)

	routine := seedRoutine(t, f, "Push Pull")
	for _, c := range []*domain.Client{client, keep} {
		a, err := f.assignments.Assign(ctx, AssignmentInput{ClientID: c.ID, RoutineID: routine.ID})
		require.NoError(t, err)
		_, err = f.assignments.LogCompletion(ctx, a.ID, CompletionInput{WorkoutID: routine.WorkoutIDs[0]})
		require.NoError(t, err)
		_, err = f.metrics.RecordSnapshot(ctx, SnapshotInput{ClientID: c.ID, Weight: 80})
		require.NoError(t, err)
		_, err = f.metrics.CreateGoal(ctx, GoalInput{ClientID: c.ID, Title: "Lose", TargetValue: 75, Unit: "kg", Deadline: date(2024, time.December, 1)})
		require.NoError(t, err)
	}

	_, err = f.clients.UploadProfileImage(ctx, client.ID, imageUpload())
	require.NoError(t, err)
	imageKey := f.store.clients[client.ID].ProfileImageKey

	require.NoError(t, f.clients.DeleteClient(ctx, client.ID))

	require.NotContains(t, f.store.clients, client.ID)
	require.Contains(t, f.store.users, user.ID)
	require.Len(t, f.store.clientRoutines, 1)
	require.Len(t, f.store.routineProgress, 1)
	require.Len(t, f.store.snapshots, 1)
	require.Len(t, f.store.goals, 1)
	for _, g := range f.store.goals {
		require.Equal(t, keep.ID, g.ClientID)
	}
	require.Contains(t, f.files.deleted, imageKey)

	require.ErrorIs(t, f.clients.DeleteClient(ctx, client.ID), ErrClientNotFound)
}

func imageUpload() Upload {
	return Upload{FileName: "face.JPG", ContentType: "image/jpeg", Size: 4, Body: strings.NewReader("jpeg")}
}

func TestUploadProfileImage_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	client, _, err := f.clients.CreateClient(ctx, clientInput("Pic", "pic@example.com", "555-1400", date(1990, time.May, 5)))
	require.NoError(t, err)

	first, err := f.clients.UploadProfileImage(ctx, client.ID, imageUpload())
	require.NoError(t, err)
	firstKey := first.ProfileImageKey
	require.True(t, strings.HasPrefix(firstKey, "clients/"))
	require.True(t, strings.HasSuffix(firstKey, ".jpg"))
	require.Equal(t, "https://cdn.test/"+firstKey, first.ProfileImage)

	second, err := f.clients.UploadProfileImage(ctx, client.ID, imageUpload())
	require.NoError(t, err)
	require.NotEqual(t, firstKey, second.ProfileImageKey)
	require.Equal(t, []string{firstKey}, f.files.deleted)
	require.Contains(t, f.files.objects, second.ProfileImageKey)

	_, err = f.clients.UploadProfileImage(ctx, client.ID, Upload{FileName: "x.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf")})
	require.ErrorIs(t, err, ErrValidation)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	stats, err := f.clients.Statistics(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Total)

	expired := date(2024, time.January, 1)
	a := clientInput("A", "a@example.com", "555-1501", date(2004, time.January, 1)) // 20
	a.Weight = 60
	b := clientInput("B", "b@example.com", "555-1502", date(1984, time.January, 1)) // 40
	b.Weight = 90
	b.SubscriptionType = domain.SubscriptionPremium
	b.SubscriptionEnd = &expired
	c := clientInput("C", "c@example.com", "555-1503", date(1994, time.January, 1)) // 30
	c.Weight = 75
	c.SubscriptionType = domain.SubscriptionNone
	for _, in := range []ClientInput{a, b, c} {
		_, _, err := f.clients.CreateClient(ctx, in)
		require.NoError(t, err)
	}

	stats, err = f.clients.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 1, stats.ActiveSubscriptions)
	require.Equal(t, 1, stats.ExpiredSubscriptions)
	require.Equal(t, 3, stats.WithIdentity)
	require.Equal(t, 1, stats.BySubscriptionType[domain.SubscriptionPremium])
	require.InDelta(t, 30.0, stats.AverageAge, 1e-9)
	require.Equal(t, 20, stats.MinAge)
	require.Equal(t, 40, stats.MaxAge)
	require.InDelta(t, 75.0, stats.AverageWeight, 1e-9)
	require.Equal(t, 60.0, stats.MinWeight)
	require.Equal(t, 90.0, stats.MaxWeight)
}

func TestListClients_GoalAndRoutineFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	withGoals := clientInput("Gia", "gia@example.com", "555-1300", date(1990, time.May, 5))
	withGoals.Goals = []string{"lose weight"}
	gia, _, err := f.clients.CreateClient(ctx, withGoals)
	require.NoError(t, err)
	hal, _, err := f.clients.CreateClient(ctx, clientInput("Hal", "hal@example.com", "555-1301", date(1990, time.May, 5)))
	require.NoError(t, err)
	_, _, err = f.clients.CreateClient(ctx, clientInput("Ivy", "ivy@example.com", "555-1302", date(1990, time.May, 5)))
	require.NoError(t, err)

	legs, arms := seedRoutine(t, f, "Legs"), seedRoutine(t, f, "Arms")
	for _, r := range []*domain.Routine{legs, arms} {
		_, err := f.assignments.Assign(ctx, AssignmentInput{ClientID: gia.ID, RoutineID: r.ID})
		require.NoError(t, err)
	}
	ended, err := f.assignments.Assign(ctx, AssignmentInput{ClientID: hal.ID, RoutineID: legs.ID})
	require.NoError(t, err)
	_, err = f.assignments.Deactivate(ctx, ended.ID)
	require.NoError(t, err)

	yes, no := true, false
	got, err := f.clients.ListClients(ctx, ClientQuery{HasGoals: &yes})
	require.NoError(t, err)
	require.Equal(t, []string{"Gia"}, clientNames(got))
	got, err = f.clients.ListClients(ctx, ClientQuery{HasGoals: &no})
	require.NoError(t, err)
	require.Equal(t, []string{"Hal", "Ivy"}, clientNames(got))

	// Only active assignments count.
	got, err = f.clients.ListClients(ctx, ClientQuery{HasRoutines: &yes})
	require.NoError(t, err)
	require.Equal(t, []string{"Gia"}, clientNames(got))
	got, err = f.clients.ListClients(ctx, ClientQuery{HasRoutines: &no})
	require.NoError(t, err)
	require.Equal(t, []string{"Hal", "Ivy"}, clientNames(got))

	two, zero := 2, 0
	got, err = f.clients.ListClients(ctx, ClientQuery{RoutineCount: &two})
	require.NoError(t, err)
	require.Equal(t, []string{"Gia"}, clientNames(got))
	got, err = f.clients.ListClients(ctx, ClientQuery{RoutineCount: &zero, HasGoals: &no})
	require.NoError(t, err)
	require.Equal(t, []string{"Hal", "Ivy"}, clientNames(got))

	negative := -1
	_, err = f.clients.ListClients(ctx, ClientQuery{RoutineCount: &negative})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateClient_AgeUsesUTCDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	// 2024-06-14 12:00 UTC seen from UTC+14, where it is already June 15th.
	kiritimati := time.FixedZone("LINT", 14*60*60)
	instant := time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC).In(kiritimati)
	at := func() time.Time { return instant }
	f.identities.now, f.clients.now = at, at

	client, user, err := f.clients.CreateClient(ctx, clientInput("Kit", "kit@example.com", "555-1400", date(1998, time.June, 15)))
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.store.users[user.ID].PasswordHash), []byte("2500")))
	require.Equal(t, 25, client.Age(instant))

	// The age filters agree with the password on the same instant.
	age := 25
	got, err := f.clients.ListClients(ctx, ClientQuery{MinAge: &age, MaxAge: &age})
	require.NoError(t, err)
	require.Equal(t, []string{"Kit"}, clientNames(got))
}
