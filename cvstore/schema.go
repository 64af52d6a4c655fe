package cvstore

// Schema is the CV data model. Dates are ISO "YYYY-MM-DD" text, NULL when
// unset. Section rows cascade with their profile. attachment_file holds an
// object-storage key, attachment_link a free-text URL; listings only carry
// files.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    names            TEXT NOT NULL DEFAULT '',
    surnames         TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    photo_url        TEXT NOT NULL DEFAULT '',
    nationality      TEXT NOT NULL DEFAULT '',
    birth_place      TEXT NOT NULL DEFAULT '',
    birth_date       TEXT,
    id_number        TEXT NOT NULL DEFAULT '',
    sex              TEXT NOT NULL DEFAULT '',
    marital_status   TEXT NOT NULL DEFAULT '',
    driving_license  TEXT NOT NULL DEFAULT '',
    mobile_phone     TEXT NOT NULL DEFAULT '',
    land_phone       TEXT NOT NULL DEFAULT '',
    email            TEXT NOT NULL DEFAULT '',
    work_address     TEXT NOT NULL DEFAULT '',
    home_address     TEXT NOT NULL DEFAULT '',
    website          TEXT NOT NULL DEFAULT '',
    active           INTEGER NOT NULL DEFAULT 1,
    show_experience  INTEGER NOT NULL DEFAULT 1,
    show_courses     INTEGER NOT NULL DEFAULT 1,
    show_recognitions INTEGER NOT NULL DEFAULT 1,
    show_academic    INTEGER NOT NULL DEFAULT 1,
    show_labor       INTEGER NOT NULL DEFAULT 1,
    show_marketplace INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS experiences (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id       INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    position         TEXT NOT NULL DEFAULT '',
    company          TEXT NOT NULL DEFAULT '',
    location         TEXT NOT NULL DEFAULT '',
    company_email    TEXT NOT NULL DEFAULT '',
    company_website  TEXT NOT NULL DEFAULT '',
    contact_name     TEXT NOT NULL DEFAULT '',
    contact_phone    TEXT NOT NULL DEFAULT '',
    start_date       TEXT,
    end_date         TEXT,
    duties           TEXT NOT NULL DEFAULT '',
    visible          INTEGER NOT NULL DEFAULT 1,
    attachment_file  TEXT NOT NULL DEFAULT '',
    attachment_link  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS courses (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id       INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    name             TEXT NOT NULL DEFAULT '',
    start_date       TEXT,
    end_date         TEXT,
    total_hours      INTEGER NOT NULL DEFAULT 0,
    description      TEXT NOT NULL DEFAULT '',
    sponsor          TEXT NOT NULL DEFAULT '',
    contact_name     TEXT NOT NULL DEFAULT '',
    contact_phone    TEXT NOT NULL DEFAULT '',
    sponsor_email    TEXT NOT NULL DEFAULT '',
    visible          INTEGER NOT NULL DEFAULT 1,
    attachment_file  TEXT NOT NULL DEFAULT '',
    attachment_link  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS recognitions (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id       INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    kind             TEXT NOT NULL DEFAULT '',
    date             TEXT,
    description      TEXT NOT NULL DEFAULT '',
    sponsor          TEXT NOT NULL DEFAULT '',
    contact_name     TEXT NOT NULL DEFAULT '',
    contact_phone    TEXT NOT NULL DEFAULT '',
    visible          INTEGER NOT NULL DEFAULT 1,
    attachment_file  TEXT NOT NULL DEFAULT '',
    attachment_link  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS academic_products (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id       INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    name             TEXT NOT NULL DEFAULT '',
    classifier       TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    visible          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS labor_products (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id       INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    name             TEXT NOT NULL DEFAULT '',
    date             TEXT,
    description      TEXT NOT NULL DEFAULT '',
    visible          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS listings (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id       INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    product          TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    price            REAL NOT NULL CHECK (price > 0),
    condition        TEXT NOT NULL CHECK (condition IN ('Bueno', 'Regular')),
    published_at     TEXT NOT NULL,
    image            TEXT NOT NULL DEFAULT '',
    active           INTEGER NOT NULL DEFAULT 1,
    attachment_file  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_profiles_active     ON profiles(active, id);
CREATE INDEX IF NOT EXISTS idx_experiences_profile ON experiences(profile_id, start_date DESC);
CREATE INDEX IF NOT EXISTS idx_courses_profile     ON courses(profile_id, start_date DESC);
CREATE INDEX IF NOT EXISTS idx_recognitions_profile ON recognitions(profile_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_academic_profile    ON academic_products(profile_id);
CREATE INDEX IF NOT EXISTS idx_labor_profile       ON labor_products(profile_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_listings_profile    ON listings(profile_id, published_at DESC);
`
