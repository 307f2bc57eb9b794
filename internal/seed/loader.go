// Package seed bulk-loads provisioning data (schools, buses, users, grants)
// from CSV files into postgres. Upserts are keyed on natural keys so the
// loader can be re-run safely; everything runs in one transaction.
package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/bustracker-app/bustracker/internal/identity"
	"github.com/bustracker-app/bustracker/internal/models"
)

// Targets lists the loadable files in dependency order.
var Targets = []string{
	"schools",
	"buses",
	"school_buses",
	"run_types",
	"school_bus_run_types",
	"users",
	"user_schools",
}

// Result summarizes one file's load.
type Result struct {
	Inserted int
	Updated  int
	Rows     int
}

// ParseOnly validates a comma-separated --only value against Targets. An
// empty value selects everything.
func ParseOnly(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return Targets, nil
	}
	allowed := map[string]bool{}
	for _, t := range Targets {
		allowed[t] = true
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !allowed[p] {
			return nil, fmt.Errorf("invalid --only value: %s (allowed: %s)", p, strings.Join(Targets, ", "))
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, errors.New("--only requires at least one value")
	}
	return parts, nil
}

// Run loads the selected targets from dataDir inside a single transaction and
// returns per-target results keyed by target name.
func Run(db *gorm.DB, dataDir string, only []string) (map[string]Result, error) {
	selected := map[string]bool{}
	for _, t := range only {
		selected[t] = true
	}

	results := map[string]Result{}
	err := db.Transaction(func(tx *gorm.DB) error {
		l := &loader{tx: tx}
		for _, target := range Targets {
			if !selected[target] {
				continue
			}
			path := filepath.Join(dataDir, target+".csv")
			res, err := l.load(target, path)
			if err != nil {
				return err
			}
			results[target] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type loader struct {
	tx *gorm.DB
}

func (l *loader) load(target, path string) (Result, error) {
	switch target {
	case "schools":
		return l.upsertSchools(path)
	case "buses":
		return l.upsertBuses(path)
	case "school_buses":
		return l.upsertSchoolBuses(path)
	case "run_types":
		return l.upsertRunTypes(path)
	case "school_bus_run_types":
		return l.upsertSchoolBusRunTypes(path)
	case "users":
		return l.upsertUsers(path)
	case "user_schools":
		return l.upsertUserSchools(path)
	}
	return Result{}, fmt.Errorf("unknown seed target: %s", target)
}

func (l *loader) upsertSchools(path string) (Result, error) {
	rows, err := readCSVRows(path, []string{"short_name", "long_name", "timezone", "is_active"})
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: len(rows)}
	for _, r := range rows {
		shortName, err := requireStr(r["short_name"], "schools.csv", "short_name")
		if err != nil {
			return Result{}, err
		}
		longName, err := requireStr(r["long_name"], "schools.csv", "long_name")
		if err != nil {
			return Result{}, err
		}
		timezone, err := requireStr(r["timezone"], "schools.csv", "timezone")
		if err != nil {
			return Result{}, err
		}
		isActive, err := parseBool01(r["is_active"], "schools.csv", "is_active")
		if err != nil {
			return Result{}, err
		}

		existing, err := l.schoolByShortName(shortName)
		if err != nil {
			return Result{}, err
		}
		if existing == nil {
			s := models.School{ShortName: shortName, LongName: longName, Timezone: timezone, IsActive: isActive}
			if err := l.tx.Create(&s).Error; err != nil {
				return Result{}, fmt.Errorf("schools.csv: insert %s: %w", shortName, err)
			}
			res.Inserted++
			continue
		}

		changed := existing.LongName != longName ||
			existing.Timezone != timezone ||
			existing.IsActive != isActive
		if changed {
			existing.LongName = longName
			existing.Timezone = timezone
			existing.IsActive = isActive
			if err := l.tx.Save(existing).Error; err != nil {
				return Result{}, fmt.Errorf("schools.csv: update %s: %w", shortName, err)
			}
			res.Updated++
		}
	}
	return res, nil
}

func (l *loader) upsertBuses(path string) (Result, error) {
	rows, err := readCSVRows(path, []string{"bus_code", "is_active"})
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: len(rows)}
	for _, r := range rows {
		busCode, err := requireStr(r["bus_code"], "buses.csv", "bus_code")
		if err != nil {
			return Result{}, err
		}
		isActive, err := parseBool01(r["is_active"], "buses.csv", "is_active")
		if err != nil {
			return Result{}, err
		}

		existing, err := l.busByCode(busCode)
		if err != nil {
			return Result{}, err
		}
		if existing == nil {
			b := models.Bus{BusCode: busCode, IsActive: isActive}
			if err := l.tx.Create(&b).Error; err != nil {
				return Result{}, fmt.Errorf("buses.csv: insert %s: %w", busCode, err)
			}
			res.Inserted++
			continue
		}
		if existing.IsActive != isActive {
			existing.IsActive = isActive
			if err := l.tx.Save(existing).Error; err != nil {
				return Result{}, fmt.Errorf("buses.csv: update %s: %w", busCode, err)
			}
			res.Updated++
		}
	}
	return res, nil
}

func (l *loader) upsertSchoolBuses(path string) (Result, error) {
	rows, err := readCSVRows(path, []string{
		"school_short_name", "bus_code", "display_name", "color_name",
		"hex_color", "sort_order", "driver_name", "is_sped", "is_active",
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: len(rows)}
	for _, r := range rows {
		shortName, err := requireStr(r["school_short_name"], "school_buses.csv", "school_short_name")
		if err != nil {
			return Result{}, err
		}
		busCode, err := requireStr(r["bus_code"], "school_buses.csv", "bus_code")
		if err != nil {
			return Result{}, err
		}
		displayName, err := requireStr(r["display_name"], "school_buses.csv", "display_name")
		if err != nil {
			return Result{}, err
		}
		colorName, err := requireStr(r["color_name"], "school_buses.csv", "color_name")
		if err != nil {
			return Result{}, err
		}
		hexColor, err := requireStr(r["hex_color"], "school_buses.csv", "hex_color")
		if err != nil {
			return Result{}, err
		}
		if err := validateHexColor(hexColor, "school_buses.csv"); err != nil {
			return Result{}, err
		}
		sortOrder, err := parseIntRequired(r["sort_order"], "school_buses.csv", "sort_order")
		if err != nil {
			return Result{}, err
		}
		driverName, err := requireStr(r["driver_name"], "school_buses.csv", "driver_name")
		if err != nil {
			return Result{}, err
		}
		isSped, err := parseBool01(r["is_sped"], "school_buses.csv", "is_sped")
		if err != nil {
			return Result{}, err
		}
		isActive, err := parseBool01(r["is_active"], "school_buses.csv", "is_active")
		if err != nil {
			return Result{}, err
		}

		school, err := l.schoolByShortName(shortName)
		if err != nil {
			return Result{}, err
		}
		if school == nil {
			return Result{}, fmt.Errorf("school_buses.csv: school not found for short_name: %s", shortName)
		}
		bus, err := l.busByCode(busCode)
		if err != nil {
			return Result{}, err
		}
		if bus == nil {
			return Result{}, fmt.Errorf("school_buses.csv: bus not found for bus_code: %s", busCode)
		}

		existing, err := l.schoolBus(school.ID, displayName)
		if err != nil {
			return Result{}, err
		}
		if existing == nil {
			sb := models.SchoolBus{
				SchoolID:    school.ID,
				BusID:       bus.ID,
				DisplayName: displayName,
				ColorName:   colorName,
				HexColor:    hexColor,
				SortOrder:   sortOrder,
				DriverName:  driverName,
				IsSped:      isSped,
				IsActive:    isActive,
			}
			if err := l.tx.Create(&sb).Error; err != nil {
				return Result{}, fmt.Errorf("school_buses.csv: insert %s/%s: %w", shortName, displayName, err)
			}
			res.Inserted++
			continue
		}

		changed := existing.BusID != bus.ID ||
			existing.ColorName != colorName ||
			existing.HexColor != hexColor ||
			existing.SortOrder != sortOrder ||
			existing.DriverName != driverName ||
			existing.IsSped != isSped ||
			existing.IsActive != isActive
		if changed {
			existing.BusID = bus.ID
			existing.ColorName = colorName
			existing.HexColor = hexColor
			existing.SortOrder = sortOrder
			existing.DriverName = driverName
			existing.IsSped = isSped
			existing.IsActive = isActive
			if err := l.tx.Save(existing).Error; err != nil {
				return Result{}, fmt.Errorf("school_buses.csv: update %s/%s: %w", shortName, displayName, err)
			}
			res.Updated++
		}
	}
	return res, nil
}

func (l *loader) upsertRunTypes(path string) (Result, error) {
	rows, err := readCSVRows(path, []string{
		"run_type_code", "display_name", "is_departure",
		"default_after_local_time", "is_active",
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: len(rows)}
	for _, r := range rows {
		code, err := requireStr(r["run_type_code"], "run_types.csv", "run_type_code")
		if err != nil {
			return Result{}, err
		}
		displayName, err := requireStr(r["display_name"], "run_types.csv", "display_name")
		if err != nil {
			return Result{}, err
		}
		isDeparture, err := parseBool01(r["is_departure"], "run_types.csv", "is_departure")
		if err != nil {
			return Result{}, err
		}
		defaultAfter, err := parseTimeHHMMSSOptional(r["default_after_local_time"], "run_types.csv", "default_after_local_time")
		if err != nil {
			return Result{}, err
		}
		isActive, err := parseBool01(r["is_active"], "run_types.csv", "is_active")
		if err != nil {
			return Result{}, err
		}

		existing, err := l.runTypeByCode(code)
		if err != nil {
			return Result{}, err
		}
		if existing == nil {
			rt := models.RunType{
				RunTypeCode:           code,
				DisplayName:           displayName,
				IsDeparture:           isDeparture,
				DefaultAfterLocalTime: defaultAfter,
				IsActive:              isActive,
			}
			if err := l.tx.Create(&rt).Error; err != nil {
				return Result{}, fmt.Errorf("run_types.csv: insert %s: %w", code, err)
			}
			res.Inserted++
			continue
		}

		changed := existing.DisplayName != displayName ||
			existing.IsDeparture != isDeparture ||
			!strPtrEqual(existing.DefaultAfterLocalTime, defaultAfter) ||
			existing.IsActive != isActive
		if changed {
			existing.DisplayName = displayName
			existing.IsDeparture = isDeparture
			existing.DefaultAfterLocalTime = defaultAfter
			existing.IsActive = isActive
			if err := l.tx.Save(existing).Error; err != nil {
				return Result{}, fmt.Errorf("run_types.csv: update %s: %w", code, err)
			}
			res.Updated++
		}
	}
	return res, nil
}

func (l *loader) upsertSchoolBusRunTypes(path string) (Result, error) {
	rows, err := readCSVRows(path, []string{
		"school_short_name", "school_bus_display_name", "run_type_code",
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: len(rows)}
	for _, r := range rows {
		shortName, err := requireStr(r["school_short_name"], "school_bus_run_types.csv", "school_short_name")
		if err != nil {
			return Result{}, err
		}
		displayName, err := requireStr(r["school_bus_display_name"], "school_bus_run_types.csv", "school_bus_display_name")
		if err != nil {
			return Result{}, err
		}
		code, err := requireStr(r["run_type_code"], "school_bus_run_types.csv", "run_type_code")
		if err != nil {
			return Result{}, err
		}

		school, err := l.schoolByShortName(shortName)
		if err != nil {
			return Result{}, err
		}
		if school == nil {
			return Result{}, fmt.Errorf("school_bus_run_types.csv: school not found for short_name: %s", shortName)
		}
		schoolBus, err := l.schoolBus(school.ID, displayName)
		if err != nil {
			return Result{}, err
		}
		if schoolBus == nil {
			return Result{}, fmt.Errorf("school_bus_run_types.csv: school_bus not found for school=%s, display_name=%s", shortName, displayName)
		}
		runType, err := l.runTypeByCode(code)
		if err != nil {
			return Result{}, err
		}
		if runType == nil {
			return Result{}, fmt.Errorf("school_bus_run_types.csv: run_type not found for run_type_code: %s", code)
		}

		var existing models.SchoolBusRunType
		err = l.tx.
			Where("school_bus_id = ? AND run_type_id = ?", schoolBus.ID, runType.ID).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{}, err
		}

		link := models.SchoolBusRunType{SchoolBusID: schoolBus.ID, RunTypeID: runType.ID}
		if err := l.tx.Create(&link).Error; err != nil {
			return Result{}, fmt.Errorf("school_bus_run_types.csv: insert %s/%s/%s: %w", shortName, displayName, code, err)
		}
		res.Inserted++
	}
	return res, nil
}

func (l *loader) upsertUsers(path string) (Result, error) {
	rows, err := readCSVRows(path, []string{"email", "is_active"})
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: len(rows)}
	for _, r := range rows {
		email, err := requireStr(r["email"], "users.csv", "email")
		if err != nil {
			return Result{}, err
		}
		isActive, err := parseBool01(r["is_active"], "users.csv", "is_active")
		if err != nil {
			return Result{}, err
		}
		email = identity.NormalizeEmail(email)

		existing, err := l.userByEmail(email)
		if err != nil {
			return Result{}, err
		}
		if existing == nil {
			u := models.User{Email: email, IsActive: isActive}
			if err := l.tx.Create(&u).Error; err != nil {
				return Result{}, fmt.Errorf("users.csv: insert %s: %w", email, err)
			}
			res.Inserted++
			continue
		}
		if existing.IsActive != isActive {
			existing.IsActive = isActive
			if err := l.tx.Save(existing).Error; err != nil {
				return Result{}, fmt.Errorf("users.csv: update %s: %w", email, err)
			}
			res.Updated++
		}
	}
	return res, nil
}

func (l *loader) upsertUserSchools(path string) (Result, error) {
	rows, err := readCSVRows(path, []string{"user_email", "school_short_name"})
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: len(rows)}
	for _, r := range rows {
		email, err := requireStr(r["user_email"], "user_schools.csv", "user_email")
		if err != nil {
			return Result{}, err
		}
		shortName, err := requireStr(r["school_short_name"], "user_schools.csv", "school_short_name")
		if err != nil {
			return Result{}, err
		}
		email = identity.NormalizeEmail(email)

		user, err := l.userByEmail(email)
		if err != nil {
			return Result{}, err
		}
		if user == nil {
			return Result{}, fmt.Errorf("user_schools.csv: user not found for email: %s", email)
		}
		school, err := l.schoolByShortName(shortName)
		if err != nil {
			return Result{}, err
		}
		if school == nil {
			return Result{}, fmt.Errorf("user_schools.csv: school not found for short_name: %s", shortName)
		}

		var existing models.UserSchool
		err = l.tx.
			Where("user_id = ? AND school_id = ?", user.ID, school.ID).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{}, err
		}

		link := models.UserSchool{UserID: user.ID, SchoolID: school.ID}
		if err := l.tx.Create(&link).Error; err != nil {
			return Result{}, fmt.Errorf("user_schools.csv: insert %s/%s: %w", email, shortName, err)
		}
		res.Inserted++
	}
	return res, nil
}

func (l *loader) schoolByShortName(shortName string) (*models.School, error) {
	var s models.School
	err := l.tx.Where("short_name = ?", shortName).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (l *loader) busByCode(code string) (*models.Bus, error) {
	var b models.Bus
	err := l.tx.Where("bus_code = ?", code).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (l *loader) schoolBus(schoolID int64, displayName string) (*models.SchoolBus, error) {
	var sb models.SchoolBus
	err := l.tx.Where("school_id = ? AND display_name = ?", schoolID, displayName).First(&sb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sb, nil
}

func (l *loader) runTypeByCode(code string) (*models.RunType, error) {
	var rt models.RunType
	err := l.tx.Where("run_type_code = ?", code).First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (l *loader) userByEmail(email string) (*models.User, error) {
	var u models.User
	err := l.tx.Where("LOWER(email) = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// readCSVRows parses path into trimmed string maps keyed by header, after
// checking the required headers are present.
func readCSVRows(path string, requiredHeaders []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("csv file not found: %s", path)
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv file is empty: %s", path)
		}
		return nil, fmt.Errorf("read headers from %s: %w", path, err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	have := map[string]bool{}
	for _, h := range headers {
		have[h] = true
	}
	var missing []string
	for _, h := range requiredHeaders {
		if !have[h] {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required headers in %s: %s", path, strings.Join(missing, ", "))
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row from %s: %w", path, err)
		}
		row := map[string]string{}
		for i, h := range headers {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func requireStr(raw, context, field string) (string, error) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return "", fmt.Errorf("%s: %s is required", context, field)
	}
	return val, nil
}

func parseBool01(raw, context, field string) (bool, error) {
	val := strings.TrimSpace(raw)
	switch val {
	case "1":
		return true, nil
	case "0":
		return false, nil
	case "":
		return false, fmt.Errorf("%s: %s is required (use 1 or 0)", context, field)
	}
	return false, fmt.Errorf("%s: invalid %s (use 1 or 0), got: %s", context, field, val)
}

func parseIntRequired(raw, context, field string) (int, error) {
	val, err := requireStr(raw, context, field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s (must be int), got: %s", context, field, val)
	}
	return n, nil
}

func validateHexColor(val, context string) error {
	if !strings.HasPrefix(val, "#") || len(val) != 7 {
		return fmt.Errorf("%s: invalid hex_color (expected #RRGGBB), got: %s", context, val)
	}
	return nil
}

// parseTimeHHMMSSOptional accepts an empty value as nil and otherwise
// normalizes HH:MM:SS with range checks.
func parseTimeHHMMSSOptional(raw, context, field string) (*string, error) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return nil, nil
	}
	parts := strings.Split(val, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%s: invalid %s (HH:MM:SS), got: %s", context, field, val)
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	ss, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("%s: invalid %s (HH:MM:SS), got: %s", context, field, val)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return nil, fmt.Errorf("%s: invalid %s (HH:MM:SS), got: %s", context, field, val)
	}
	normalized := fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss)
	return &normalized, nil
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
